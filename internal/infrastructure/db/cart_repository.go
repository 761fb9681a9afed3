package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type CartRepository struct {
	q querier
	d Dialect
}

func (r *CartRepository) SessionByCookie(ctx context.Context, cookie string) (*domain.ShoppingSession, error) {
	q := `
        select session_id, cookie, created_at_ms, expire_at_ms
        from shopping_sessions
        where cookie = ?
    `
	var s domain.ShoppingSession
	var createdMs, expireMs int64
	err := r.q.QueryRowContext(ctx, r.d.rebind(q), cookie).Scan(&s.ID, &s.Cookie, &createdMs, &expireMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAtUtc = time.UnixMilli(createdMs).UTC()
	s.ExpireAtUtc = time.UnixMilli(expireMs).UTC()
	return &s, nil
}

// Lines returns the session's items priced in currency. An item without a
// price in that currency fails the whole cart with ErrInvalidArgument.
func (r *CartRepository) Lines(
	ctx context.Context,
	sessionID int64,
	currency domain.Currency,
) ([]domain.CartLine, error) {
	q := `
        select c.sku, c.qty, p.price, s.weight
        from cart_items c
        inner join stock_units s on s.sku = c.sku
        left join sku_prices p on p.sku = c.sku and p.currency = ?
        where c.session_id = ?
        order by c.sku
    `
	rows, err := r.q.QueryContext(ctx, r.d.rebind(q), string(currency), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		var price decimal.NullDecimal
		if err := rows.Scan(&l.Sku, &l.Quantity, &price, &l.Weight); err != nil {
			return nil, err
		}
		if !price.Valid {
			return nil, fmt.Errorf("%w: sku %s has no %s price", domain.ErrInvalidArgument, l.Sku, currency)
		}
		l.UnitPrice = price.Decimal
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *CartRepository) RemoveItems(ctx context.Context, sessionID int64, skus []string) error {
	q := r.d.rebind(`delete from cart_items where session_id = ? and sku = ?`)
	for _, sku := range skus {
		if _, err := r.q.ExecContext(ctx, q, sessionID, sku); err != nil {
			return err
		}
	}
	return nil
}
