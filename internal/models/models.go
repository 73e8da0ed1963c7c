package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem represents a sellable item in the static catalog
type CatalogItem struct {
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SKUCustom is the pseudo-SKU for caller-supplied custom sticker items.
const SKUCustom = "custom"

// Order represents a committed purchase. A row exists only after payment
// verification succeeded; there is no persisted pre-payment state.
//
// Shipping address columns are json-tagged "-": no read API ever returns
// them.
type Order struct {
	ID                 string          `db:"id" json:"id"`
	Wallet             string          `db:"wallet" json:"wallet"`
	AgentID            string          `db:"agent_id" json:"agent_id"`
	Status             string          `db:"status" json:"status"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentTxReference sql.NullString  `db:"payment_tx_reference" json:"-"`
	FulfillmentOrderID sql.NullString  `db:"fulfillment_order_id" json:"-"`
	AttestationRef     sql.NullString  `db:"attestation_reference" json:"-"`

	ShipName    string `db:"ship_name" json:"-"`
	ShipLine1   string `db:"ship_line1" json:"-"`
	ShipLine2   string `db:"ship_line2" json:"-"`
	ShipCity    string `db:"ship_city" json:"-"`
	ShipState   string `db:"ship_state" json:"-"`
	ShipZip     string `db:"ship_zip" json:"-"`
	ShipCountry string `db:"ship_country" json:"-"`

	ShippingMethod string          `db:"shipping_method" json:"shipping_method"`
	ShippingCost   decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one line of an order
type OrderItem struct {
	ID             int64           `db:"id" json:"-"`
	OrderID        string          `db:"order_id" json:"-"`
	SKU            string          `db:"sku" json:"sku"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal      decimal.Decimal `db:"line_total" json:"line_total"`
	CustomImageURL sql.NullString  `db:"custom_image_url" json:"-"`
}

// Order statuses. Transitions are monotonic: an order never regresses.
// pending and paid both describe an admitted, not-yet-fulfilled order;
// orders are committed as paid (payment verification is a precondition
// for the row existing at all).
const (
	OrderStatusPending           = "pending"
	OrderStatusPaid              = "paid"
	OrderStatusFulfillmentFailed = "fulfillment_failed"
	OrderStatusFulfilled         = "fulfilled"
)
