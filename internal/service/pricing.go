package service

import (
	"context"
	"database/sql"
	"fmt"

	"agent-storefront/internal/models"

	"github.com/shopspring/decimal"
)

// PricedOrder is the deterministic pricing result for a request: line
// items with computed totals plus the overall total including the
// caller-declared shipping cost. All arithmetic is two-decimal fixed
// point; no floats touch currency.
type PricedOrder struct {
	Items        []models.OrderItem
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// priceItems resolves catalog prices and computes line and order totals.
// Custom items are priced at the fixed configured base price; pricing
// depends on nothing but the request and the static catalog.
func (o *Orchestrator) priceItems(ctx context.Context, items []OrderItemRequest, shippingCost decimal.Decimal) (*PricedOrder, error) {
	skus := make([]string, 0, len(items))
	for _, item := range items {
		if item.SKU != models.SKUCustom {
			skus = append(skus, item.SKU)
		}
	}

	catalog, err := o.ledger.GetCatalogItemsBySKUs(ctx, skus)
	if err != nil {
		return nil, errLedger("failed to load catalog", err)
	}

	priced := &PricedOrder{
		Items:        make([]models.OrderItem, 0, len(items)),
		Subtotal:     decimal.Zero,
		ShippingCost: shippingCost.Round(2),
	}

	for _, item := range items {
		var unitPrice decimal.Decimal
		if item.SKU == models.SKUCustom {
			unitPrice = o.cfg.CustomItemPrice
		} else {
			catalogItem, ok := catalog[item.SKU]
			if !ok {
				return nil, errNotFound(fmt.Sprintf("unknown catalog item: %s", item.SKU))
			}
			unitPrice = catalogItem.UnitPrice
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		priced.Items = append(priced.Items, models.OrderItem{
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPrice:      unitPrice,
			LineTotal:      lineTotal,
			CustomImageURL: sql.NullString{String: item.CustomImageURL, Valid: item.CustomImageURL != ""},
		})
		priced.Subtotal = priced.Subtotal.Add(lineTotal)
	}

	priced.Subtotal = priced.Subtotal.Round(2)
	priced.Total = priced.Subtotal.Add(priced.ShippingCost).Round(2)
	return priced, nil
}
