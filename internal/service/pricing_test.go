package service

import (
	"context"
	"testing"

	"agent-storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceItems(t *testing.T) {
	env := newTestEnv()

	priced, err := env.orch.priceItems(context.Background(), []OrderItemRequest{
		{SKU: "sticker-pack-small", Quantity: 3},
		{SKU: "sticker-pack-large", Quantity: 1},
	}, decimal.RequireFromString("3.72"))
	require.NoError(t, err)

	// 3 x 4.20 + 1 x 9.80 = 22.40, plus shipping.
	assert.Equal(t, "22.40", priced.Subtotal.StringFixed(2))
	assert.Equal(t, "3.72", priced.ShippingCost.StringFixed(2))
	assert.Equal(t, "26.12", priced.Total.StringFixed(2))

	require.Len(t, priced.Items, 2)
	assert.Equal(t, "12.60", priced.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "9.80", priced.Items[1].LineTotal.StringFixed(2))
}

func TestPriceItemsCustom(t *testing.T) {
	env := newTestEnv()

	priced, err := env.orch.priceItems(context.Background(), []OrderItemRequest{
		{SKU: models.SKUCustom, Quantity: 2, CustomImageURL: "https://img.example/cat.png"},
	}, decimal.Zero)
	require.NoError(t, err)

	// Custom items use the fixed configured price, not the catalog.
	assert.Equal(t, "4.20", priced.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "8.40", priced.Total.StringFixed(2))
	require.True(t, priced.Items[0].CustomImageURL.Valid)
	assert.Equal(t, "https://img.example/cat.png", priced.Items[0].CustomImageURL.String)
}

func TestPriceItemsUnknownSKU(t *testing.T) {
	env := newTestEnv()

	_, err := env.orch.priceItems(context.Background(), []OrderItemRequest{
		{SKU: "glitter-bomb", Quantity: 1},
	}, decimal.Zero)

	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, ae.Kind)
	assert.Contains(t, ae.Message, "glitter-bomb")
}
