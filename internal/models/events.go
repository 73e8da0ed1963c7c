package models

import "time"

// Event types
const (
	EventTypeOrderPaid         = "ORDER_PAID"
	EventTypeOrderFulfilled    = "ORDER_FULFILLED"
	EventTypeFulfillmentFailed = "FULFILLMENT_FAILED"
	EventTypeReceiptMinted     = "RECEIPT_MINTED"
	EventTypeReceiptFailed     = "RECEIPT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPaidEvent published once an order has been committed against a
// verified settlement
type OrderPaidEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	Wallet      string `json:"wallet"`
	AgentID     string `json:"agent_id"`
	TotalAmount string `json:"total_amount"`
	PaymentTx   string `json:"payment_tx"`
}

// OrderFulfilledEvent published when the fulfillment provider accepted
// the order
type OrderFulfilledEvent struct {
	BaseEvent
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
}

// FulfillmentFailedEvent published when submission to the fulfillment
// provider failed; the order stands and is retried out-of-band
type FulfillmentFailedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// ReceiptMintedEvent published when the purchase attestation landed
// on-chain
type ReceiptMintedEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	AttestationRef string `json:"attestation_reference"`
}

// ReceiptFailedEvent published when minting failed; the attestation
// worker picks these up and retries the mint
type ReceiptFailedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
