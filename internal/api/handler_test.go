package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agent-storefront/internal/attest"
	"agent-storefront/internal/models"
	"agent-storefront/internal/service"
	"agent-storefront/internal/store"
	"agent-storefront/internal/verify"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testWallet = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testTxRef  = "0x5555555555555555555555555555555555555555555555555555555555555555"
)

// memLedger is a minimal in-memory service.Ledger for handler tests.
type memLedger struct {
	orders map[string]*models.Order
	byRef  map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{orders: make(map[string]*models.Order), byRef: make(map[string]bool)}
}

func (m *memLedger) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if order.PaymentTxReference.Valid {
		if m.byRef[order.PaymentTxReference.String] {
			return store.ErrPaymentRefConsumed
		}
		m.byRef[order.PaymentTxReference.String] = true
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = order
	return nil
}

func (m *memLedger) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	return order, nil
}

func (m *memLedger) GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	if m.byRef[ref] {
		for _, order := range m.orders {
			if order.PaymentTxReference.String == ref {
				return order, nil
			}
		}
	}
	return nil, nil
}

func (m *memLedger) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	return nil, nil
}

func (m *memLedger) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	if order, ok := m.orders[orderID]; ok {
		order.Status = status
	}
	return nil
}

func (m *memLedger) SetFulfillmentOrderID(ctx context.Context, orderID, providerOrderID string) error {
	return nil
}

func (m *memLedger) SetAttestationReference(ctx context.Context, orderID, ref string) error {
	return nil
}

func (m *memLedger) ListOrdersByWallet(ctx context.Context, wallet string, limit int) ([]models.Order, error) {
	return nil, nil
}

func (m *memLedger) GetCatalogItemsBySKUs(ctx context.Context, skus []string) (map[string]models.CatalogItem, error) {
	out := make(map[string]models.CatalogItem)
	for _, sku := range skus {
		if sku == "sticker-pack-small" {
			out[sku] = models.CatalogItem{SKU: sku, Name: "Small sticker pack", UnitPrice: decimal.RequireFromString("4.20"), Active: true}
		}
	}
	return out, nil
}

func (m *memLedger) GetCatalogItems(ctx context.Context) ([]models.CatalogItem, error) {
	return []models.CatalogItem{
		{SKU: "sticker-pack-small", Name: "Small sticker pack", UnitPrice: decimal.RequireFromString("4.20"), Active: true},
	}, nil
}

type okIdentity struct{}

func (okIdentity) VerifyOwnership(ctx context.Context, agentID, claimedWallet string) (string, error) {
	return claimedWallet, nil
}

type okPayments struct{}

func (okPayments) VerifyPayment(ctx context.Context, txRef string, expected decimal.Decimal) (*verify.Settlement, error) {
	return &verify.Settlement{Payer: testWallet, Amount: expected, TxHash: txRef}, nil
}

type okFulfillment struct{}

func (okFulfillment) Submit(ctx context.Context, order *models.Order, items []models.OrderItem) (string, error) {
	return "PROV-1", nil
}

type okMinter struct{}

func (okMinter) Mint(ctx context.Context, rec *attest.Receipt) (string, error) {
	return "0xattest", nil
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.allowed, s.err
}

func newTestRouter(limiter RateLimiter) *gin.Engine {
	ledger := newMemLedger()
	orch := service.NewOrchestrator(
		ledger,
		service.NewReplayGuard(nil, ledger),
		okIdentity{},
		okPayments{},
		okFulfillment{},
		okMinter{},
		nil,
		service.OrchestratorConfig{
			ChainID:          8453,
			TokenAddress:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			TokenDecimals:    6,
			ReceivingAddress: "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
			CustomItemPrice:  decimal.RequireFromString("4.20"),
		},
	)

	router := gin.New()
	NewHandler(orch, limiter, 10).SetupRoutes(router)
	return router
}

func orderBody(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	body := map[string]any{
		"agent_id":             "42",
		"wallet":               testWallet,
		"payment_tx_reference": testTxRef,
		"items":                []map[string]any{{"sku": "sticker-pack-small", "quantity": 1}},
		"shipping_address": map[string]any{
			"name": "Test Agent", "line1": "1 Loop Rd", "city": "Mountain View",
			"zip": "94043", "country": "US",
		},
		"shipping_method": "standard",
		"shipping_cost":   "3.72",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
		} else {
			body[k] = v
		}
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func doRequest(router *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateOrderEndpoint(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodPost, "/api/v1/orders", orderBody(t, nil), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testWallet, resp["wallet"])
	assert.Equal(t, models.OrderStatusFulfilled, resp["status"])
	assert.NotEmpty(t, resp["order_id"])
}

func TestCreateOrderHeadersMergedIntoBody(t *testing.T) {
	router := newTestRouter(nil)

	body := orderBody(t, map[string]any{"agent_id": nil, "wallet": nil, "payment_tx_reference": nil})
	w := doRequest(router, http.MethodPost, "/api/v1/orders", body, map[string]string{
		"X-Agent-ID":       "42",
		"X-Wallet-Address": testWallet,
		"X-Payment-Tx":     testTxRef,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateOrderWithoutAgentIs403(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodPost, "/api/v1/orders", orderBody(t, map[string]any{"agent_id": nil}), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "identity", resp["kind"])
}

func TestCreateOrderWithoutPaymentIs402WithInstructions(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodPost, "/api/v1/orders", orderBody(t, map[string]any{"payment_tx_reference": nil}), nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp struct {
		Kind         string `json:"kind"`
		Instructions struct {
			ReceivingAddress string `json:"receiving_address"`
			ChainID          int64  `json:"chain_id"`
			TokenAddress     string `json:"token_address"`
			Amount           string `json:"amount"`
		} `json:"payment_instructions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "payment", resp.Kind)
	assert.Equal(t, "0x90F79bf6EB2c4f870365E785982E1f101E93b906", resp.Instructions.ReceivingAddress)
	assert.Equal(t, int64(8453), resp.Instructions.ChainID)
	assert.Equal(t, "7.92", resp.Instructions.Amount)
}

func TestCreateOrderMalformedBody(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodPost, "/api/v1/orders", []byte("{not json"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodGet, "/api/v1/orders/0191e3a4-0000-7000-8000-000000000009?wallet="+testWallet, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderRequiresWallet(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodGet, "/api/v1/orders/0191e3a4-0000-7000-8000-000000000009", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCatalog(t *testing.T) {
	router := newTestRouter(nil)

	w := doRequest(router, http.MethodGet, "/api/v1/catalog", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []models.CatalogItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "sticker-pack-small", resp.Items[0].SKU)
}

func TestRateLimitExceeded(t *testing.T) {
	router := newTestRouter(&stubLimiter{allowed: false})

	w := doRequest(router, http.MethodGet, "/api/v1/catalog", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	router := newTestRouter(&stubLimiter{allowed: false, err: errors.New("redis down")})

	w := doRequest(router, http.MethodGet, "/api/v1/catalog", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(nil)

	for _, path := range []string{"/health", "/ready"} {
		w := doRequest(router, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
