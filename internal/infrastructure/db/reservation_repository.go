package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// Reservations

type ReservationRepository struct {
	q querier
	d Dialect
}

const reservationColumns = `reservation_id, cart_id, sku, qty, status, created_at_ms, expire_at_ms, updated_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var status string
	var createdMs, expireMs, updatedMs int64
	if err := row.Scan(
		&res.ID,
		&res.CartID,
		&res.Sku,
		&res.Quantity,
		&status,
		&createdMs,
		&expireMs,
		&updatedMs,
	); err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	res.CreatedAtUtc = time.UnixMilli(createdMs).UTC()
	res.ExpireAtUtc = time.UnixMilli(expireMs).UTC()
	res.UpdatedAtUtc = time.UnixMilli(updatedMs).UTC()
	return &res, nil
}

func (r *ReservationRepository) GetPending(
	ctx context.Context,
	cartID, sku string,
) (*domain.Reservation, error) {
	q := `select ` + reservationColumns + `
        from reservations
        where cart_id = ? and sku = ? and status = 'PENDING'`
	res, err := scanReservation(r.q.QueryRowContext(ctx, r.d.locking(q), cartID, sku))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *ReservationRepository) ListPendingByCart(
	ctx context.Context,
	cartID string,
) ([]domain.Reservation, error) {
	q := `select ` + reservationColumns + `
        from reservations
        where cart_id = ? and status = 'PENDING'
        order by sku`
	return r.list(ctx, r.d.rebind(q), cartID)
}

func (r *ReservationRepository) ListExpiredPending(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]domain.Reservation, error) {
	q := `select ` + reservationColumns + `
        from reservations
        where status = 'PENDING' and expire_at_ms <= ?
        order by expire_at_ms asc
        limit ?`
	return r.list(ctx, r.d.rebind(q), now.UTC().UnixMilli(), limit)
}

func (r *ReservationRepository) list(ctx context.Context, q string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	return result, rows.Err()
}

// UpsertPending inserts the cart's hold for the SKU or, when one is already
// PENDING, replaces its quantity and expiry.
func (r *ReservationRepository) UpsertPending(ctx context.Context, res *domain.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	q := `
        insert into reservations (` + reservationColumns + `)
        values (?,?,?,?,'PENDING',?,?,?)
        on conflict (cart_id, sku) where status = 'PENDING' do update
        set qty = excluded.qty,
            expire_at_ms = excluded.expire_at_ms,
            updated_at_ms = excluded.updated_at_ms
    `
	_, err := r.q.ExecContext(
		ctx, r.d.rebind(q),
		res.ID,
		res.CartID,
		res.Sku,
		res.Quantity,
		res.CreatedAtUtc.UnixMilli(),
		res.ExpireAtUtc.UnixMilli(),
		res.UpdatedAtUtc.UnixMilli(),
	)
	return classify(err)
}

func (r *ReservationRepository) ShrinkPending(
	ctx context.Context,
	cartID, sku string,
	qty int,
	expireAt, now time.Time,
) (bool, error) {
	q := `
        update reservations
        set qty = qty - ?,
            expire_at_ms = ?,
            updated_at_ms = ?
        where cart_id = ? and sku = ? and status = 'PENDING' and qty >= ?
    `
	return r.exec(ctx, q, qty, expireAt.UTC().UnixMilli(), now.UTC().UnixMilli(), cartID, sku, qty)
}

func (r *ReservationRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.ReservationStatus,
	now time.Time,
) (bool, error) {
	q := `
        update reservations
        set status = ?,
            updated_at_ms = ?
        where reservation_id = ? and status = ?
    `
	return r.exec(ctx, q, string(to), now.UTC().UnixMilli(), id, string(from))
}

func (r *ReservationRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := `
        delete from reservations
        where status <> 'PENDING' and updated_at_ms < ?
    `
	res, err := r.q.ExecContext(ctx, r.d.rebind(q), cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ReservationRepository) exec(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.q.ExecContext(ctx, r.d.rebind(q), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
