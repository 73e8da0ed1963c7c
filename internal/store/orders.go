package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agent-storefront/internal/models"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// CreateOrder atomically inserts an order and its items. If the payment
// reference was already consumed by another order the whole insert fails
// with ErrPaymentRefConsumed and no partial row is left behind.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			id, wallet, agent_id, status, total_amount, payment_tx_reference,
			ship_name, ship_line1, ship_line2, ship_city, ship_state, ship_zip, ship_country,
			shipping_method, shipping_cost
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.ID, order.Wallet, order.AgentID, order.Status, order.TotalAmount, order.PaymentTxReference,
		order.ShipName, order.ShipLine1, order.ShipLine2, order.ShipCity, order.ShipState, order.ShipZip, order.ShipCountry,
		order.ShippingMethod, order.ShippingCost,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrPaymentRefConsumed
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, sku, quantity, unit_price, line_total, custom_image_url)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			items[i].OrderID, items[i].SKU, items[i].Quantity,
			items[i].UnitPrice, items[i].LineTotal, items[i].CustomImageURL,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentReference retrieves the order that consumed a payment
// reference, or nil if none has.
func (s *Store) GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE payment_tx_reference = $1", ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// SetFulfillmentOrderID records the provider's order id
func (s *Store) SetFulfillmentOrderID(ctx context.Context, orderID, providerOrderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET fulfillment_order_id = $1, updated_at = NOW() WHERE id = $2",
		providerOrderID, orderID)
	return err
}

// SetAttestationReference records the minted receipt reference
func (s *Store) SetAttestationReference(ctx context.Context, orderID, ref string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET attestation_reference = $1, updated_at = NOW() WHERE id = $2",
		ref, orderID)
	return err
}

// ListOrdersByWallet retrieves recent orders for a wallet
func (s *Store) ListOrdersByWallet(ctx context.Context, wallet string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE LOWER(wallet) = LOWER($1) ORDER BY created_at DESC LIMIT $2",
		wallet, limit)
	return orders, err
}
