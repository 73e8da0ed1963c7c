package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agent-storefront/internal/models"
	"agent-storefront/internal/util"

	"go.uber.org/zap"
)

// Client submits confirmed orders to the external print/ship provider.
// Submission is best-effort from the orchestrator's point of view: the
// order is already committed when Submit is called and a failure here
// never rolls it back.
type Client struct {
	apiURL  string
	apiKey  string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a fulfillment provider client
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  util.GetLogger(),
	}
}

type submitRequest struct {
	ExternalID string          `json:"external_id"`
	Recipient  recipient       `json:"recipient"`
	Items      []submitItem    `json:"items"`
	Shipping   shippingOptions `json:"shipping"`
}

type recipient struct {
	Name    string `json:"name"`
	Line1   string `json:"address1"`
	Line2   string `json:"address2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state_code"`
	Zip     string `json:"zip"`
	Country string `json:"country_code"`
}

type submitItem struct {
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	CustomImageURL string `json:"custom_image_url,omitempty"`
}

type shippingOptions struct {
	Method string `json:"method"`
}

type submitResponse struct {
	ID string `json:"id"`
}

// Submit sends the order to the provider and returns the provider's
// order id
func (c *Client) Submit(ctx context.Context, order *models.Order, items []models.OrderItem) (string, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentClient.Submit")
	defer span.End()

	reqItems := make([]submitItem, 0, len(items))
	for _, item := range items {
		reqItems = append(reqItems, submitItem{
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			CustomImageURL: item.CustomImageURL.String,
		})
	}

	body, err := json.Marshal(submitRequest{
		ExternalID: order.ID,
		Recipient: recipient{
			Name:    order.ShipName,
			Line1:   order.ShipLine1,
			Line2:   order.ShipLine2,
			City:    order.ShipCity,
			State:   order.ShipState,
			Zip:     order.ShipZip,
			Country: order.ShipCountry,
		},
		Items:    reqItems,
		Shipping: shippingOptions{Method: order.ShippingMethod},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal fulfillment request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.apiURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fulfillment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Fulfillment provider rejected order",
			zap.String("order_id", order.ID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("detail", detail))
		return "", fmt.Errorf("fulfillment provider rejected order: status %d: %s", resp.StatusCode, detail)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("provider response missing order id")
	}

	return out.ID, nil
}
