package application_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db/dbtest"
)

func productCreated(t *testing.T, sku string, qty int, usd string) *primitives.IntegrationEventEnvelope {
	t.Helper()
	payload, err := json.Marshal(domain.ProductCreatedPayload{
		Sku:           sku,
		Name:          "Shirt",
		StockQuantity: qty,
		WeightKg:      "0.5",
		Prices: []domain.ProductCreatedPrice{
			{Currency: "USD", Amount: usd},
			{Currency: "EUR", Amount: "1.00"},
		},
	})
	require.NoError(t, err)
	env := primitives.NewIntegrationEventEnvelope("ProductCreated", string(payload))
	return &env
}

func TestProductCreatedHandler_InsertsNewSku(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	h := application.NewProductCreatedHandler(store)

	require.NoError(t, h.Handle(ctx, productCreated(t, "SHIRT-1", 7, "12.00")))

	unit, err := store.Stock().GetBySku(ctx, "SHIRT-1")
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, 7, unit.Inventory)
	assert.Equal(t, "0.5", unit.Weight.String())

	msgs, err := store.Outbox().GetPendingBatch(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "CatalogStockAdjusted", msgs[0].Type)
}

func TestProductCreatedHandler_NeverOverwritesInventory(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	h := application.NewProductCreatedHandler(store)
	require.NoError(t, h.Handle(ctx, productCreated(t, "SHIRT-1", 7, "12.00")))

	_, err := application.NewReservationService(store).Reserve(ctx, "cart-a",
		domain.ReservationRequest{Sku: "SHIRT-1", Quantity: 3}, hold)
	require.NoError(t, err)

	// redelivery with a new price
	require.NoError(t, h.Handle(ctx, productCreated(t, "SHIRT-1", 7, "15.00")))

	assert.Equal(t, 4, dbtest.Inventory(t, store, "SHIRT-1"))

	session := dbtest.SeedCart(t, store, "session-1", map[string]int{"SHIRT-1": 1})
	lines, err := store.Carts().Lines(ctx, session, domain.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "15.00", lines[0].UnitPrice.StringFixed(2))
}

func TestProductCreatedHandler_IgnoresUnusableEvents(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	h := application.NewProductCreatedHandler(store)

	other := primitives.NewIntegrationEventEnvelope("ProductDeleted", `{"sku":"X"}`)
	assert.NoError(t, h.Handle(ctx, &other))

	garbage := primitives.NewIntegrationEventEnvelope("ProductCreated", `{not json`)
	assert.NoError(t, h.Handle(ctx, &garbage))

	noSku := primitives.NewIntegrationEventEnvelope("ProductCreated", `{"name":"x"}`)
	assert.NoError(t, h.Handle(ctx, &noSku))

	unit, err := store.Stock().GetBySku(ctx, "X")
	require.NoError(t, err)
	assert.Nil(t, unit)
}
