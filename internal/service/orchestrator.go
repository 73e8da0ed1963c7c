package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-storefront/internal/attest"
	"agent-storefront/internal/models"
	"agent-storefront/internal/store"
	"agent-storefront/internal/util"
	"agent-storefront/internal/verify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the order store as seen by the orchestrator. It is the only
// shared state between concurrent requests and the sole synchronization
// point.
type Ledger interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	SetFulfillmentOrderID(ctx context.Context, orderID, providerOrderID string) error
	SetAttestationReference(ctx context.Context, orderID, ref string) error
	ListOrdersByWallet(ctx context.Context, wallet string, limit int) ([]models.Order, error)
	GetCatalogItemsBySKUs(ctx context.Context, skus []string) (map[string]models.CatalogItem, error)
	GetCatalogItems(ctx context.Context) ([]models.CatalogItem, error)
}

// IdentityVerifier confirms a claimed wallet owns an agent token.
type IdentityVerifier interface {
	VerifyOwnership(ctx context.Context, agentID, claimedWallet string) (string, error)
}

// PaymentVerifier confirms a settled transaction paid the expected
// amount to the storefront.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, txRef string, expected decimal.Decimal) (*verify.Settlement, error)
}

// FulfillmentSubmitter submits committed orders to the print/ship
// provider.
type FulfillmentSubmitter interface {
	Submit(ctx context.Context, order *models.Order, items []models.OrderItem) (string, error)
}

// ReceiptMinter publishes the on-chain purchase attestation.
type ReceiptMinter interface {
	Mint(ctx context.Context, rec *attest.Receipt) (string, error)
}

// EventPublisher emits order lifecycle events; all publishes are best
// effort.
type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error
	PublishFulfillmentFailed(ctx context.Context, event *models.FulfillmentFailedEvent) error
	PublishReceiptMinted(ctx context.Context, event *models.ReceiptMintedEvent) error
	PublishReceiptFailed(ctx context.Context, event *models.ReceiptFailedEvent) error
}

// PaymentInstructions tells a caller how to pay. Attached to every 402
// response so an unattended agent can settle and resubmit without any
// out-of-band lookup.
type PaymentInstructions struct {
	ReceivingAddress string           `json:"receiving_address"`
	ChainID          int64            `json:"chain_id"`
	TokenAddress     string           `json:"token_address"`
	TokenDecimals    int              `json:"token_decimals"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
}

// OrchestratorConfig carries the storefront constants the pipeline
// needs.
type OrchestratorConfig struct {
	ChainID          int64
	TokenAddress     string
	TokenDecimals    int
	ReceivingAddress string
	CustomItemPrice  decimal.Decimal
}

// Orchestrator sequences the admission pipeline: identity check, replay
// pre-check, pricing, payment verification, atomic commit, then
// best-effort fulfillment submission and receipt minting. Steps before
// the commit are side-effect free; nothing after the commit can undo it.
type Orchestrator struct {
	ledger      Ledger
	replay      *ReplayGuard
	identity    IdentityVerifier
	payments    PaymentVerifier
	fulfillment FulfillmentSubmitter
	minter      ReceiptMinter
	events      EventPublisher
	cfg         OrchestratorConfig
	logger      *zap.Logger
}

// NewOrchestrator creates the order orchestrator. All collaborators are
// injected; events may be nil.
func NewOrchestrator(
	ledger Ledger,
	replay *ReplayGuard,
	identity IdentityVerifier,
	payments PaymentVerifier,
	fulfillment FulfillmentSubmitter,
	minter ReceiptMinter,
	events EventPublisher,
	cfg OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger,
		replay:      replay,
		identity:    identity,
		payments:    payments,
		fulfillment: fulfillment,
		minter:      minter,
		events:      events,
		cfg:         cfg,
		logger:      util.GetLogger(),
	}
}

// CreateOrderRequest is the strictly-typed order draft. Agent id, wallet
// and payment reference may arrive as body fields or headers; the
// handler merges headers in before calling the service.
type CreateOrderRequest struct {
	AgentID            string                 `json:"agent_id"`
	Wallet             string                 `json:"wallet"`
	PaymentTxReference string                 `json:"payment_tx_reference"`
	Items              []OrderItemRequest     `json:"items"`
	ShippingAddress    ShippingAddressRequest `json:"shipping_address"`
	ShippingMethod     string                 `json:"shipping_method"`
	ShippingCost       string                 `json:"shipping_cost"`
}

// OrderItemRequest is one requested line item
type OrderItemRequest struct {
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	CustomImageURL string `json:"custom_image_url,omitempty"`
}

// ShippingAddressRequest is the structured postal address. Write-once:
// stored at commit, never returned by any read path.
type ShippingAddressRequest struct {
	Name    string `json:"name"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// PaymentSummary echoes the verifier-derived settlement facts
type PaymentSummary struct {
	Payer       string    `json:"payer"`
	TxReference string    `json:"tx_reference"`
	SettledAt   time.Time `json:"settled_at"`
}

// CreateOrderResponse is the 201 body for an admitted order
type CreateOrderResponse struct {
	OrderID            string             `json:"order_id"`
	Status             string             `json:"status"`
	Wallet             string             `json:"wallet"`
	Total              decimal.Decimal    `json:"total"`
	Items              []models.OrderItem `json:"items"`
	FulfillmentOrderID *string            `json:"fulfillment_order_id"`
	AttestationRef     *string            `json:"attestation_reference"`
	Payment            PaymentSummary     `json:"payment"`
}

// PaymentInstructionsFor returns payment instructions, optionally with
// the amount due
func (o *Orchestrator) PaymentInstructionsFor(amount *decimal.Decimal) *PaymentInstructions {
	return &PaymentInstructions{
		ReceivingAddress: o.cfg.ReceivingAddress,
		ChainID:          o.cfg.ChainID,
		TokenAddress:     o.cfg.TokenAddress,
		TokenDecimals:    o.cfg.TokenDecimals,
		Amount:           amount,
	}
}

// CreateOrder runs the full admission pipeline for one request.
func (o *Orchestrator) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.CreateOrder")
	defer span.End()

	// Gate 1: agent-only storefront.
	if strings.TrimSpace(req.AgentID) == "" {
		util.OrdersRejectedTotal.WithLabelValues("no_agent").Inc()
		return nil, errIdentity("agent identity required: this storefront only sells to registered agents", nil)
	}

	// Gate 2: a resolvable wallet claim must be present.
	if strings.TrimSpace(req.Wallet) == "" {
		util.OrdersRejectedTotal.WithLabelValues("no_wallet").Inc()
		return nil, errValidation("wallet address required (body field or X-Wallet-Address header)")
	}

	shippingCost, problems := validateRequest(req)
	if len(problems) > 0 {
		util.OrdersRejectedTotal.WithLabelValues("invalid_request").Inc()
		return nil, errValidation(strings.Join(problems, "; "))
	}

	// Gate 3: the claimed wallet must own the agent token, resolved
	// fresh against the registry on every request.
	if _, err := o.identity.VerifyOwnership(ctx, req.AgentID, req.Wallet); err != nil {
		util.IdentityChecksTotal.WithLabelValues("denied").Inc()
		util.OrdersRejectedTotal.WithLabelValues("identity").Inc()
		if errors.Is(err, verify.ErrInvalidAgentID) {
			return nil, errValidation(err.Error())
		}
		return nil, errIdentity("agent identity verification failed", err)
	}
	util.IdentityChecksTotal.WithLabelValues("verified").Inc()

	// Gate 4: replay pre-check. Cheap short-circuit only; the unique
	// constraint at commit time is the final authority.
	txRef := strings.TrimSpace(req.PaymentTxReference)
	if txRef != "" {
		consumed, err := o.replay.IsConsumed(ctx, txRef)
		if err != nil {
			return nil, errLedger("failed to check payment reference", err)
		}
		if consumed {
			util.ReplayRejectionsTotal.Inc()
			util.OrdersRejectedTotal.WithLabelValues("replay").Inc()
			return nil, errReplay(fmt.Sprintf("payment reference %s has already been consumed by a prior order", txRef))
		}
	}

	// Deterministic pricing from the static catalog plus the declared
	// shipping cost.
	priced, err := o.priceItems(ctx, req.Items, shippingCost)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("pricing").Inc()
		return nil, err
	}

	// No payment supplied: answer with instructions, not a generic
	// error, so the agent can settle and resubmit.
	if txRef == "" {
		util.OrdersRejectedTotal.WithLabelValues("payment_missing").Inc()
		return nil, &AdmissionError{
			Kind:         KindPayment,
			Message:      fmt.Sprintf("payment required: send %s to the storefront wallet and resubmit with the transaction reference", priced.Total.StringFixed(2)),
			Instructions: o.PaymentInstructionsFor(&priced.Total),
		}
	}

	// Gate 5: the payment must have settled on-chain for at least the
	// computed total within tolerance.
	settlement, err := o.payments.VerifyPayment(ctx, txRef, priced.Total)
	if err != nil {
		util.PaymentVerificationsTotal.WithLabelValues("denied").Inc()
		util.OrdersRejectedTotal.WithLabelValues("payment").Inc()
		return nil, &AdmissionError{
			Kind:         KindPayment,
			Message:      "payment verification failed",
			Err:          err,
			Instructions: o.PaymentInstructionsFor(&priced.Total),
		}
	}
	util.PaymentVerificationsTotal.WithLabelValues("verified").Inc()

	// Commit. The wallet recorded is the verifier-derived payer, never
	// the client-declared claim. Once this insert succeeds the customer
	// has an immutable order regardless of anything downstream.
	order := &models.Order{
		ID:                 uuid.New().String(),
		Wallet:             settlement.Payer,
		AgentID:            req.AgentID,
		Status:             models.OrderStatusPaid,
		TotalAmount:        priced.Total,
		PaymentTxReference: sql.NullString{String: txRef, Valid: true},
		ShipName:           req.ShippingAddress.Name,
		ShipLine1:          req.ShippingAddress.Line1,
		ShipLine2:          req.ShippingAddress.Line2,
		ShipCity:           req.ShippingAddress.City,
		ShipState:          req.ShippingAddress.State,
		ShipZip:            req.ShippingAddress.Zip,
		ShipCountry:        req.ShippingAddress.Country,
		ShippingMethod:     req.ShippingMethod,
		ShippingCost:       priced.ShippingCost,
	}

	if err := o.ledger.CreateOrder(ctx, order, priced.Items); err != nil {
		if errors.Is(err, store.ErrPaymentRefConsumed) {
			// Lost the race to another request carrying the same
			// reference.
			util.ReplayRejectionsTotal.Inc()
			util.OrdersRejectedTotal.WithLabelValues("replay").Inc()
			return nil, errReplay(fmt.Sprintf("payment reference %s has already been consumed by a prior order", txRef))
		}
		util.OrdersRejectedTotal.WithLabelValues("ledger").Inc()
		return nil, errLedger("failed to commit order", err)
	}

	util.OrdersAdmittedTotal.Inc()
	o.logger.Info("Order committed",
		zap.String("order_id", order.ID),
		zap.String("wallet", order.Wallet),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	o.replay.MarkConsumed(ctx, txRef, order.ID)
	o.publishOrderPaid(ctx, order)

	// Best-effort tail. Failures here are recorded on the order, never
	// propagated: the customer has paid and the order is real.
	status, providerOrderID := o.attemptFulfillment(ctx, order, priced.Items)
	attestationRef := o.attemptReceipt(ctx, order, priced.Items)

	resp := &CreateOrderResponse{
		OrderID: order.ID,
		Status:  status,
		Wallet:  order.Wallet,
		Total:   priced.Total,
		Items:   priced.Items,
		Payment: PaymentSummary{
			Payer:       settlement.Payer,
			TxReference: settlement.TxHash,
			SettledAt:   settlement.SettledAt,
		},
	}
	if providerOrderID != "" {
		resp.FulfillmentOrderID = &providerOrderID
	}
	if attestationRef != "" {
		resp.AttestationRef = &attestationRef
	}
	return resp, nil
}

// attemptFulfillment submits the committed order to the provider and
// records the outcome. Returns the resulting order status and provider
// order id (empty on failure).
func (o *Orchestrator) attemptFulfillment(ctx context.Context, order *models.Order, items []models.OrderItem) (string, string) {
	providerOrderID, err := o.fulfillment.Submit(ctx, order, items)
	if err != nil {
		util.FulfillmentSubmissionsTotal.WithLabelValues("error").Inc()
		o.logger.Warn("Fulfillment submission failed, order stands for out-of-band retry",
			zap.String("order_id", order.ID),
			zap.Error(err))

		if uerr := o.ledger.UpdateOrderStatus(ctx, order.ID, models.OrderStatusFulfillmentFailed); uerr != nil {
			o.logger.Error("Failed to record fulfillment failure", zap.String("order_id", order.ID), zap.Error(uerr))
		}
		o.publishFulfillmentFailed(ctx, order.ID, err.Error())
		return models.OrderStatusFulfillmentFailed, ""
	}

	util.FulfillmentSubmissionsTotal.WithLabelValues("success").Inc()
	if uerr := o.ledger.SetFulfillmentOrderID(ctx, order.ID, providerOrderID); uerr != nil {
		o.logger.Error("Failed to record provider order id", zap.String("order_id", order.ID), zap.Error(uerr))
	}
	if uerr := o.ledger.UpdateOrderStatus(ctx, order.ID, models.OrderStatusFulfilled); uerr != nil {
		o.logger.Error("Failed to record fulfilled status", zap.String("order_id", order.ID), zap.Error(uerr))
	}
	o.publishOrderFulfilled(ctx, order.ID, providerOrderID)
	return models.OrderStatusFulfilled, providerOrderID
}

// attemptReceipt mints the purchase attestation and records the
// reference; failures leave it null and enqueue a retry.
func (o *Orchestrator) attemptReceipt(ctx context.Context, order *models.Order, items []models.OrderItem) string {
	ref, err := o.minter.Mint(ctx, &attest.Receipt{
		OrderID:   order.ID,
		Buyer:     order.Wallet,
		AgentID:   order.AgentID,
		Amount:    order.TotalAmount,
		OrderedAt: order.CreatedAt,
		Items:     items,
	})
	if err != nil {
		o.logger.Warn("Receipt minting failed, attestation reference stays null",
			zap.String("order_id", order.ID),
			zap.Error(err))
		o.publishReceiptFailed(ctx, order.ID, err.Error())
		return ""
	}

	if uerr := o.ledger.SetAttestationReference(ctx, order.ID, ref); uerr != nil {
		o.logger.Error("Failed to record attestation reference", zap.String("order_id", order.ID), zap.Error(uerr))
	}
	o.publishReceiptMinted(ctx, order.ID, ref)
	return ref
}

// RetryFulfillment re-submits a stuck order to the fulfillment provider.
// Operator-facing: there is no automatic background sweep.
func (o *Orchestrator) RetryFulfillment(ctx context.Context, orderID string) (*OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.RetryFulfillment")
	defer span.End()

	order, err := o.ledger.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("order not found: %s", orderID))
		}
		return nil, errLedger("failed to load order", err)
	}

	if order.Status != models.OrderStatusFulfillmentFailed {
		return nil, errValidation(fmt.Sprintf("order %s is %s, not awaiting fulfillment retry", orderID, order.Status))
	}

	items, err := o.ledger.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, errLedger("failed to load order items", err)
	}

	providerOrderID, err := o.fulfillment.Submit(ctx, order, items)
	if err != nil {
		util.FulfillmentSubmissionsTotal.WithLabelValues("error").Inc()
		return nil, &AdmissionError{Kind: KindFulfillment, Message: "fulfillment provider rejected the retry", Err: err}
	}

	util.FulfillmentSubmissionsTotal.WithLabelValues("success").Inc()
	if uerr := o.ledger.SetFulfillmentOrderID(ctx, orderID, providerOrderID); uerr != nil {
		o.logger.Error("Failed to record provider order id", zap.String("order_id", orderID), zap.Error(uerr))
	}
	if uerr := o.ledger.UpdateOrderStatus(ctx, orderID, models.OrderStatusFulfilled); uerr != nil {
		o.logger.Error("Failed to record fulfilled status", zap.String("order_id", orderID), zap.Error(uerr))
	}
	o.publishOrderFulfilled(ctx, orderID, providerOrderID)

	return o.GetOrder(ctx, orderID, order.Wallet)
}

// OrderResponse is the read-path view of an order. It deliberately has
// no shipping-address fields: the postal address is write-once PII and
// never leaves the ledger.
type OrderResponse struct {
	OrderID            string             `json:"order_id"`
	Status             string             `json:"status"`
	Wallet             string             `json:"wallet"`
	AgentID            string             `json:"agent_id"`
	Total              decimal.Decimal    `json:"total"`
	Items              []models.OrderItem `json:"items"`
	FulfillmentOrderID *string            `json:"fulfillment_order_id"`
	AttestationRef     *string            `json:"attestation_reference"`
	PaymentTxReference string             `json:"payment_tx_reference"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// GetOrder retrieves an order for the wallet that owns it.
func (o *Orchestrator) GetOrder(ctx context.Context, orderID, wallet string) (*OrderResponse, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, errValidation("wallet query parameter required")
	}

	order, err := o.ledger.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("order not found: %s", orderID))
		}
		return nil, errLedger("failed to load order", err)
	}

	if !strings.EqualFold(order.Wallet, wallet) {
		return nil, errIdentity(fmt.Sprintf("wallet %s does not own order %s", wallet, orderID), nil)
	}

	items, err := o.ledger.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, errLedger("failed to load order items", err)
	}

	return orderResponse(order, items), nil
}

// ListOrders retrieves recent orders for a wallet. Item breakdowns are
// omitted on the list path.
func (o *Orchestrator) ListOrders(ctx context.Context, wallet string, limit int) ([]*OrderResponse, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, errValidation("wallet query parameter required")
	}

	orders, err := o.ledger.ListOrdersByWallet(ctx, wallet, limit)
	if err != nil {
		return nil, errLedger("failed to list orders", err)
	}

	out := make([]*OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, orderResponse(&orders[i], nil))
	}
	return out, nil
}

// Catalog retrieves the active catalog
func (o *Orchestrator) Catalog(ctx context.Context) ([]models.CatalogItem, error) {
	items, err := o.ledger.GetCatalogItems(ctx)
	if err != nil {
		return nil, errLedger("failed to load catalog", err)
	}
	return items, nil
}

func orderResponse(order *models.Order, items []models.OrderItem) *OrderResponse {
	resp := &OrderResponse{
		OrderID:            order.ID,
		Status:             order.Status,
		Wallet:             order.Wallet,
		AgentID:            order.AgentID,
		Total:              order.TotalAmount,
		Items:              items,
		PaymentTxReference: order.PaymentTxReference.String,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if order.FulfillmentOrderID.Valid {
		v := order.FulfillmentOrderID.String
		resp.FulfillmentOrderID = &v
	}
	if order.AttestationRef.Valid {
		v := order.AttestationRef.String
		resp.AttestationRef = &v
	}
	return resp
}

// validateRequest aggregates all boundary validation problems instead of
// failing on the first bad field. Returns the parsed shipping cost.
func validateRequest(req *CreateOrderRequest) (decimal.Decimal, []string) {
	var problems []string

	if len(req.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.SKU) == "" {
			problems = append(problems, fmt.Sprintf("items[%d]: sku is required", i))
		}
		if item.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
		if item.Quantity > 1000 {
			problems = append(problems, fmt.Sprintf("items[%d]: quantity exceeds maximum of 1000", i))
		}
		if item.SKU == models.SKUCustom && strings.TrimSpace(item.CustomImageURL) == "" {
			problems = append(problems, fmt.Sprintf("items[%d]: custom items require a custom_image_url", i))
		}
	}

	addr := req.ShippingAddress
	for _, field := range []struct{ name, value string }{
		{"name", addr.Name},
		{"line1", addr.Line1},
		{"city", addr.City},
		{"zip", addr.Zip},
		{"country", addr.Country},
	} {
		if strings.TrimSpace(field.value) == "" {
			problems = append(problems, fmt.Sprintf("shipping_address.%s is required", field.name))
		}
	}

	shippingCost := decimal.Zero
	if strings.TrimSpace(req.ShippingCost) == "" {
		problems = append(problems, "shipping_cost is required (from a prior quote)")
	} else {
		parsed, err := decimal.NewFromString(req.ShippingCost)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("shipping_cost is not a valid amount: %q", req.ShippingCost))
		case parsed.IsNegative():
			problems = append(problems, "shipping_cost must not be negative")
		default:
			shippingCost = parsed
		}
	}

	return shippingCost, problems
}

func (o *Orchestrator) publishOrderPaid(ctx context.Context, order *models.Order) {
	if o.events == nil {
		return
	}
	err := o.events.PublishOrderPaid(ctx, &models.OrderPaidEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPaid),
		OrderID:     order.ID,
		Wallet:      order.Wallet,
		AgentID:     order.AgentID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		PaymentTx:   order.PaymentTxReference.String,
	})
	if err != nil {
		o.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}
}

func (o *Orchestrator) publishOrderFulfilled(ctx context.Context, orderID, providerOrderID string) {
	if o.events == nil {
		return
	}
	err := o.events.PublishOrderFulfilled(ctx, &models.OrderFulfilledEvent{
		BaseEvent:       newBaseEvent(models.EventTypeOrderFulfilled),
		OrderID:         orderID,
		ProviderOrderID: providerOrderID,
	})
	if err != nil {
		o.logger.Error("Failed to publish OrderFulfilled event", zap.Error(err))
	}
}

func (o *Orchestrator) publishFulfillmentFailed(ctx context.Context, orderID, reason string) {
	if o.events == nil {
		return
	}
	err := o.events.PublishFulfillmentFailed(ctx, &models.FulfillmentFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypeFulfillmentFailed),
		OrderID:   orderID,
		Reason:    reason,
	})
	if err != nil {
		o.logger.Error("Failed to publish FulfillmentFailed event", zap.Error(err))
	}
}

func (o *Orchestrator) publishReceiptMinted(ctx context.Context, orderID, ref string) {
	if o.events == nil {
		return
	}
	err := o.events.PublishReceiptMinted(ctx, &models.ReceiptMintedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeReceiptMinted),
		OrderID:        orderID,
		AttestationRef: ref,
	})
	if err != nil {
		o.logger.Error("Failed to publish ReceiptMinted event", zap.Error(err))
	}
}

func (o *Orchestrator) publishReceiptFailed(ctx context.Context, orderID, reason string) {
	if o.events == nil {
		return
	}
	err := o.events.PublishReceiptFailed(ctx, &models.ReceiptFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypeReceiptFailed),
		OrderID:   orderID,
		Reason:    reason,
	})
	if err != nil {
		o.logger.Error("Failed to publish ReceiptFailed event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
