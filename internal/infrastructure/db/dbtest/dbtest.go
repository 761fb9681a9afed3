// Package dbtest builds throwaway SQLite-backed stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db"
)

// NewStore opens a migrated store in the test's temp dir.
func NewStore(t testing.TB) *db.Store {
	t.Helper()
	ctx := context.Background()

	store, err := db.Open(ctx, db.SQLite.DriverName, filepath.Join(t.TempDir(), "checkout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	return store
}

// Raw exposes the underlying handle for fixture statements.
func Raw(t testing.TB, store *db.Store) *sql.DB {
	t.Helper()
	return db.RawDB(store)
}

// SeedStockUnit inserts a SKU with a USD and an NGN price.
func SeedStockUnit(t testing.TB, store *db.Store, sku string, inventory int, weight, usd, ngn string) {
	t.Helper()
	ctx := context.Background()

	unit := &domain.StockUnit{
		Sku:         sku,
		ProductName: "product " + sku,
		Inventory:   inventory,
		Weight:      decimal.RequireFromString(weight),
	}
	inserted, err := store.Stock().InsertIfAbsent(ctx, unit)
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, store.Stock().UpdateCatalogData(ctx, unit, []domain.SkuPrice{
		{Currency: domain.CurrencyUSD, Price: decimal.RequireFromString(usd)},
		{Currency: domain.CurrencyNGN, Price: decimal.RequireFromString(ngn)},
	}))
}

// SeedCart creates a shopping session owned by cookie and fills it with the
// given sku -> qty items. It returns the session id.
func SeedCart(t testing.TB, store *db.Store, cookie string, items map[string]int) int64 {
	t.Helper()
	ctx := context.Background()
	raw := Raw(t, store)

	now := time.Now().UTC()
	_, err := raw.ExecContext(ctx,
		`insert into shopping_sessions (cookie, created_at_ms, expire_at_ms) values (?,?,?)`,
		cookie, now.UnixMilli(), now.Add(time.Hour).UnixMilli())
	require.NoError(t, err)

	session, err := store.Carts().SessionByCookie(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, session)

	for sku, qty := range items {
		_, err := raw.ExecContext(ctx,
			`insert into cart_items (session_id, sku, qty) values (?,?,?)`,
			session.ID, sku, qty)
		require.NoError(t, err)
	}
	return session.ID
}

// SeedShipSetting upserts the ship setting for a country.
func SeedShipSetting(t testing.TB, store *db.Store, country, usd, ngn string) {
	t.Helper()
	_, err := Raw(t, store).ExecContext(context.Background(), `
        insert into ship_settings (country, usd_price, ngn_price) values (?,?,?)
        on conflict (country) do update set usd_price = excluded.usd_price, ngn_price = excluded.ngn_price`,
		country, usd, ngn)
	require.NoError(t, err)
}

// SetTaxRate rewrites the active tax row.
func SetTaxRate(t testing.TB, store *db.Store, name, rate string) {
	t.Helper()
	_, err := Raw(t, store).ExecContext(context.Background(),
		`update taxes set name = ?, rate = ? where tax_id = ?`, name, rate, domain.ActiveTaxID)
	require.NoError(t, err)
}

// Inventory reads a SKU's counter.
func Inventory(t testing.TB, store *db.Store, sku string) int {
	t.Helper()
	unit, err := store.Stock().GetBySku(context.Background(), sku)
	require.NoError(t, err)
	require.NotNil(t, unit)
	return unit.Inventory
}

// CountReservations counts rows of the cart/sku pair in the given status.
func CountReservations(t testing.TB, store *db.Store, cartID, sku string, status domain.ReservationStatus) int {
	t.Helper()
	var n int
	require.NoError(t, Raw(t, store).QueryRowContext(context.Background(),
		`select count(*) from reservations where cart_id = ? and sku = ? and status = ?`,
		cartID, sku, string(status)).Scan(&n))
	return n
}
