package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type StockUnitRepository struct {
	q querier
	d Dialect
}

const selectStockUnit = `
        select sku, product_name, inventory, weight, updated_at_ms
        from stock_units
        where sku = ?`

func (r *StockUnitRepository) GetBySku(ctx context.Context, sku string) (*domain.StockUnit, error) {
	unit, err := scanStockUnit(r.q.QueryRowContext(ctx, r.d.rebind(selectStockUnit), sku))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return unit, err
}

func (r *StockUnitRepository) Lock(ctx context.Context, sku string) (*domain.StockUnit, error) {
	unit, err := scanStockUnit(r.q.QueryRowContext(ctx, r.d.locking(selectStockUnit), sku))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sku %s", domain.ErrNotFound, sku)
	}
	return unit, err
}

func scanStockUnit(row *sql.Row) (*domain.StockUnit, error) {
	var unit domain.StockUnit
	var updatedMs int64
	if err := row.Scan(
		&unit.Sku,
		&unit.ProductName,
		&unit.Inventory,
		&unit.Weight,
		&updatedMs,
	); err != nil {
		return nil, err
	}
	unit.UpdatedAtUtc = time.UnixMilli(updatedMs).UTC()
	return &unit, nil
}

// Deduct is a single conditional update: the row only changes when enough
// inventory is left, so concurrent buyers cannot oversell.
func (r *StockUnitRepository) Deduct(ctx context.Context, sku string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: negative deduction %d", domain.ErrInvalidArgument, qty)
	}
	if qty == 0 {
		return nil
	}

	q := `
        update stock_units
        set inventory = inventory - ?,
            updated_at_ms = ?
        where sku = ? and inventory >= ?
    `
	res, err := r.q.ExecContext(ctx, r.d.rebind(q), qty, time.Now().UTC().UnixMilli(), sku, qty)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	unit, err := r.GetBySku(ctx, sku)
	if err != nil {
		return err
	}
	if unit == nil {
		return fmt.Errorf("%w: sku %s", domain.ErrNotFound, sku)
	}
	return fmt.Errorf("%w: sku %s has %d, requested %d",
		domain.ErrInsufficientInventory, sku, unit.Inventory, qty)
}

func (r *StockUnitRepository) Restock(ctx context.Context, sku string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: negative restock %d", domain.ErrInvalidArgument, qty)
	}
	if qty == 0 {
		return nil
	}

	q := `
        update stock_units
        set inventory = inventory + ?,
            updated_at_ms = ?
        where sku = ?
    `
	res, err := r.q.ExecContext(ctx, r.d.rebind(q), qty, time.Now().UTC().UnixMilli(), sku)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: sku %s", domain.ErrNotFound, sku)
	}
	return nil
}

func (r *StockUnitRepository) InsertIfAbsent(ctx context.Context, unit *domain.StockUnit) (bool, error) {
	if unit.UpdatedAtUtc.IsZero() {
		unit.UpdatedAtUtc = time.Now().UTC()
	}

	q := `
        insert into stock_units (sku, product_name, inventory, weight, updated_at_ms)
        values (?,?,?,?,?)
        on conflict (sku) do nothing
    `
	res, err := r.q.ExecContext(
		ctx, r.d.rebind(q),
		unit.Sku,
		unit.ProductName,
		unit.Inventory,
		unit.Weight,
		unit.UpdatedAtUtc.UnixMilli(),
	)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateCatalogData refreshes descriptive data and prices. Inventory is
// never touched here; only reservations move it.
func (r *StockUnitRepository) UpdateCatalogData(
	ctx context.Context,
	unit *domain.StockUnit,
	prices []domain.SkuPrice,
) error {
	q := `
        update stock_units
        set product_name = ?,
            weight = ?,
            updated_at_ms = ?
        where sku = ?
    `
	if _, err := r.q.ExecContext(
		ctx, r.d.rebind(q),
		unit.ProductName,
		unit.Weight,
		time.Now().UTC().UnixMilli(),
		unit.Sku,
	); err != nil {
		return err
	}

	pq := `
        insert into sku_prices (sku, currency, price)
        values (?,?,?)
        on conflict (sku, currency) do update
        set price = excluded.price
    `
	for _, p := range prices {
		if _, err := r.q.ExecContext(ctx, r.d.rebind(pq), unit.Sku, string(p.Currency), p.Price); err != nil {
			return err
		}
	}
	return nil
}
