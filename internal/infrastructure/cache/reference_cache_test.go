package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db/dbtest"
)

type memoryCache struct {
	entries map[string]string
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.entries[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	if m.failGet {
		return "", errors.New("connection refused")
	}
	return m.entries[key], nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return "checkout:" + operation + ":" + key
}

type countingReference struct {
	taxCalls  int
	shipCalls int
}

func (c *countingReference) TaxByID(_ context.Context, id int64) (*domain.Tax, error) {
	c.taxCalls++
	return &domain.Tax{ID: id, Name: "VAT", Rate: decimal.RequireFromString("0.075")}, nil
}

func (c *countingReference) ShipSettingByCountryOrDefault(_ context.Context, country string) (*domain.ShipSetting, error) {
	c.shipCalls++
	if country == "nowhere" {
		return nil, domain.ErrNotFound
	}
	return &domain.ShipSetting{
		ID:       2,
		Country:  country,
		UsdPrice: decimal.RequireFromString("1.50"),
		NgnPrice: decimal.RequireFromString("2500"),
	}, nil
}

func TestTaxIsServedFromCacheAfterFirstLookup(t *testing.T) {
	ctx := context.Background()
	inner := &countingReference{}
	repo := NewReferenceRepository(inner, newMemoryCache(), time.Minute)

	first, err := repo.TaxByID(ctx, domain.ActiveTaxID)
	require.NoError(t, err)
	second, err := repo.TaxByID(ctx, domain.ActiveTaxID)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.taxCalls)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Rate.Equal(second.Rate))
}

func TestCachedShipSettingMatchesDirectLookup(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	dbtest.SeedShipSetting(t, store, domain.DefaultShipCountry, "5.00", "2500.00")
	dbtest.SeedShipSetting(t, store, "NG", "1.00", "500.00")

	direct := store.Reference()
	cached := NewReferenceRepository(direct, newMemoryCache(), time.Minute)

	for _, country := range []string{"NG", "ng", " NG", "Atlantis", "NG"} {
		want, err := direct.ShipSettingByCountryOrDefault(ctx, country)
		require.NoError(t, err)
		got, err := cached.ShipSettingByCountryOrDefault(ctx, country)
		require.NoError(t, err)

		assert.Equal(t, want.Country, got.Country, country)
		assert.True(t, want.UsdPrice.Equal(got.UsdPrice), country)
	}

	s, err := cached.ShipSettingByCountryOrDefault(ctx, "ng")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultShipCountry, s.Country)
}

func TestShipSettingIsServedFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingReference{}
	repo := NewReferenceRepository(inner, newMemoryCache(), time.Minute)

	_, err := repo.ShipSettingByCountryOrDefault(ctx, "Nigeria")
	require.NoError(t, err)
	s, err := repo.ShipSettingByCountryOrDefault(ctx, "Nigeria")
	require.NoError(t, err)
	_, err = repo.ShipSettingByCountryOrDefault(ctx, "nigeria")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.shipCalls)
	assert.Equal(t, "1.5", s.UsdPrice.String())
}

func TestErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingReference{}
	cache := newMemoryCache()
	repo := NewReferenceRepository(inner, cache, time.Minute)

	_, err := repo.ShipSettingByCountryOrDefault(ctx, "nowhere")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.ShipSettingByCountryOrDefault(ctx, "nowhere")
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 2, inner.shipCalls)
	assert.Empty(t, cache.entries)
}

func TestCacheOutageFallsBackToRepository(t *testing.T) {
	ctx := context.Background()
	inner := &countingReference{}
	cache := newMemoryCache()
	cache.failGet = true
	repo := NewReferenceRepository(inner, cache, time.Minute)

	tax, err := repo.TaxByID(ctx, domain.ActiveTaxID)
	require.NoError(t, err)
	assert.Equal(t, "VAT", tax.Name)

	_, err = repo.TaxByID(ctx, domain.ActiveTaxID)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.taxCalls)
}

func TestGenerateKeyIsNamespacedByService(t *testing.T) {
	c := NewRedisCache("localhost:0", "checkout")
	t.Cleanup(func() { _ = c.Close() })
	assert.Equal(t, "checkout:tax:1", c.GenerateKey("tax", "1"))
}
