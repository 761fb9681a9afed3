package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db/dbtest"
)

func TestUpsertPending_ReplacesInsteadOfAdding(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.SeedStockUnit(t, store, "ABC", 5, "1", "1", "1")
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.NewReservation("cart-a", "ABC", 2, now, time.Minute)
	require.NoError(t, store.Reservations().UpsertPending(ctx, first))

	second := domain.NewReservation("cart-a", "ABC", 4, now.Add(time.Second), time.Hour)
	require.NoError(t, store.Reservations().UpsertPending(ctx, second))

	assert.Equal(t, 1, dbtest.CountReservations(t, store, "cart-a", "ABC", domain.ReservationPending))

	got, err := store.Reservations().GetPending(ctx, "cart-a", "ABC")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, second.ExpireAtUtc.UnixMilli(), got.ExpireAtUtc.UnixMilli())
}

func TestTransition_IsStatusGuarded(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.SeedStockUnit(t, store, "ABC", 5, "1", "1", "1")
	ctx := context.Background()
	now := time.Now().UTC()

	res := domain.NewReservation("cart-a", "ABC", 1, now, time.Minute)
	require.NoError(t, store.Reservations().UpsertPending(ctx, res))

	ok, err := store.Reservations().Transition(ctx, res.ID, domain.ReservationPending, domain.ReservationConfirmed, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reservations().Transition(ctx, res.ID, domain.ReservationPending, domain.ReservationExpired, now)
	require.NoError(t, err)
	assert.False(t, ok, "a confirmed reservation cannot be expired")
}

func TestListExpiredPending_AndGarbageCollection(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.SeedStockUnit(t, store, "ABC", 5, "1", "1", "1")
	ctx := context.Background()
	now := time.Now().UTC()

	expired := domain.NewReservation("cart-a", "ABC", 1, now.Add(-time.Hour), time.Minute)
	live := domain.NewReservation("cart-b", "ABC", 1, now, time.Hour)
	require.NoError(t, store.Reservations().UpsertPending(ctx, expired))
	require.NoError(t, store.Reservations().UpsertPending(ctx, live))

	due, err := store.Reservations().ListExpiredPending(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, expired.ID, due[0].ID)

	_, err = store.Reservations().Transition(ctx, expired.ID, domain.ReservationPending, domain.ReservationExpired, now.Add(-2*time.Hour))
	require.NoError(t, err)

	n, err := store.Reservations().DeleteTerminalBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, dbtest.CountReservations(t, store, "cart-b", "ABC", domain.ReservationPending))
}

func TestShrinkPending(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.SeedStockUnit(t, store, "ABC", 5, "1", "1", "1")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Reservations().UpsertPending(ctx, domain.NewReservation("cart-a", "ABC", 3, now, time.Minute)))

	ok, err := store.Reservations().ShrinkPending(ctx, "cart-a", "ABC", 5, now.Add(time.Hour), now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Reservations().ShrinkPending(ctx, "cart-a", "ABC", 2, now.Add(time.Hour), now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Reservations().GetPending(ctx, "cart-a", "ABC")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestPaymentInsertIfAbsent_UniqueReference(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.SeedStockUnit(t, store, "ABC", 5, "1", "1", "1")
	ctx := context.Background()

	rec := func() *domain.PaymentRecord {
		return &domain.PaymentRecord{
			ReferenceID: "ref-1",
			Provider:    "Paystack",
			CartID:      "cart-a",
			Currency:    domain.CurrencyUSD,
			Amount:      decimal.RequireFromString("26.50"),
			Customer:    domain.PaymentCustomer{Email: "hello@hello.com"},
			Address:     domain.PaymentAddress{Country: "Nigeria"},
			Lines:       []domain.OrderLine{{Sku: "ABC", Quantity: 2}},
		}
	}

	inserted, err := store.Payments().InsertIfAbsent(ctx, rec())
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Payments().InsertIfAbsent(ctx, rec())
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := store.Payments().GetByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("26.50").Equal(got.Amount))
	assert.Equal(t, "Nigeria", got.Address.Country)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
}

func TestShipSettingFallsBackToDefault(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.SeedShipSetting(t, store, "Nigeria", "5.00", "3500")
	ctx := context.Background()

	s, err := store.Reference().ShipSettingByCountryOrDefault(ctx, "Nigeria")
	require.NoError(t, err)
	assert.Equal(t, "Nigeria", s.Country)

	s, err = store.Reference().ShipSettingByCountryOrDefault(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultShipCountry, s.Country)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "select $1, $2", db.RebindForTest("select ?, ?"))
}
