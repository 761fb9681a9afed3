package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type PaymentRepository struct {
	q querier
	d Dialect
}

// InsertIfAbsent relies on the unique reference_id: a redelivered webhook
// inserts nothing and reports false.
func (r *PaymentRepository) InsertIfAbsent(ctx context.Context, rec *domain.PaymentRecord) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAtUtc.IsZero() {
		rec.CreatedAtUtc = time.Now().UTC()
	}

	q := `
        insert into payment_details
        (payment_id, reference_id, provider, cart_id, principal, email, name, phone, currency, amount, created_at_ms)
        values (?,?,?,?,?,?,?,?,?,?,?)
        on conflict (reference_id) do nothing
    `
	res, err := r.q.ExecContext(
		ctx, r.d.rebind(q),
		rec.ID,
		rec.ReferenceID,
		rec.Provider,
		rec.CartID,
		rec.Principal,
		rec.Customer.Email,
		rec.Customer.Name,
		rec.Customer.Phone,
		string(rec.Currency),
		rec.Amount,
		rec.CreatedAtUtc.UnixMilli(),
	)
	if err != nil {
		if errors.Is(classify(err), domain.ErrDuplicateWebhookDelivery) {
			return false, nil
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	aq := `
        insert into payment_addresses
        (payment_id, address, city, state, postcode, country, delivery_info)
        values (?,?,?,?,?,?,?)
    `
	a := rec.Address
	if _, err := r.q.ExecContext(
		ctx, r.d.rebind(aq),
		rec.ID, a.Address, a.City, a.State, a.Postcode, a.Country, a.DeliveryInfo,
	); err != nil {
		return false, err
	}

	lq := r.d.rebind(`insert into order_details (order_id, payment_id, sku, qty) values (?,?,?,?)`)
	for i := range rec.Lines {
		l := &rec.Lines[i]
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if _, err := r.q.ExecContext(ctx, lq, l.ID, rec.ID, l.Sku, l.Quantity); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, referenceID string) (*domain.PaymentRecord, error) {
	q := `
        select p.payment_id, p.reference_id, p.provider, p.cart_id, p.principal,
               p.email, p.name, p.phone, p.currency, p.amount, p.created_at_ms,
               coalesce(a.address, ''), coalesce(a.city, ''), coalesce(a.state, ''),
               coalesce(a.postcode, ''), coalesce(a.country, ''), coalesce(a.delivery_info, '')
        from payment_details p
        left join payment_addresses a on a.payment_id = p.payment_id
        where p.reference_id = ?
    `
	var rec domain.PaymentRecord
	var currency string
	var createdMs int64
	err := r.q.QueryRowContext(ctx, r.d.rebind(q), referenceID).Scan(
		&rec.ID,
		&rec.ReferenceID,
		&rec.Provider,
		&rec.CartID,
		&rec.Principal,
		&rec.Customer.Email,
		&rec.Customer.Name,
		&rec.Customer.Phone,
		&currency,
		&rec.Amount,
		&createdMs,
		&rec.Address.Address,
		&rec.Address.City,
		&rec.Address.State,
		&rec.Address.Postcode,
		&rec.Address.Country,
		&rec.Address.DeliveryInfo,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Currency = domain.Currency(currency)
	rec.CreatedAtUtc = time.UnixMilli(createdMs).UTC()

	rec.Lines, err = r.orderLines(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PaymentRepository) orderLines(ctx context.Context, paymentID uuid.UUID) ([]domain.OrderLine, error) {
	q := `
        select o.order_id, o.sku, coalesce(s.product_name, ''), o.qty
        from order_details o
        left join stock_units s on s.sku = o.sku
        where o.payment_id = ?
        order by o.sku
    `
	rows, err := r.q.QueryContext(ctx, r.d.rebind(q), paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.Sku, &l.ProductName, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *PaymentRepository) ListByPrincipal(ctx context.Context, principal string) ([]domain.PaymentRecord, error) {
	q := `
        select payment_id, reference_id, provider, cart_id, principal,
               email, name, phone, currency, amount, created_at_ms
        from payment_details
        where principal = ?
        order by created_at_ms desc, reference_id
    `
	rows, err := r.q.QueryContext(ctx, r.d.rebind(q), principal)
	if err != nil {
		return nil, err
	}

	var out []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		var currency string
		var createdMs int64
		if err := rows.Scan(
			&rec.ID,
			&rec.ReferenceID,
			&rec.Provider,
			&rec.CartID,
			&rec.Principal,
			&rec.Customer.Email,
			&rec.Customer.Name,
			&rec.Customer.Phone,
			&currency,
			&rec.Amount,
			&createdMs,
		); err != nil {
			rows.Close()
			return nil, err
		}
		rec.Currency = domain.Currency(currency)
		rec.CreatedAtUtc = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	// drain before issuing the per-payment queries; SQLite has one connection
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Lines, err = r.orderLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// InsertIntent records what the reference is expected to pay for.
func (r *PaymentRepository) InsertIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	if intent.CreatedAtUtc.IsZero() {
		intent.CreatedAtUtc = time.Now().UTC()
	}

	q := `
        insert into payment_intents
        (reference_id, cart_id, principal, currency, total, created_at_ms, expire_at_ms)
        values (?,?,?,?,?,?,?)
    `
	if _, err := r.q.ExecContext(
		ctx, r.d.rebind(q),
		intent.Reference,
		intent.CartID,
		intent.Principal,
		string(intent.Currency),
		intent.Total,
		intent.CreatedAtUtc.UnixMilli(),
		intent.ExpireAt.UnixMilli(),
	); err != nil {
		return err
	}

	lq := r.d.rebind(`insert into payment_intent_lines (reference_id, sku, qty) values (?,?,?)`)
	for _, l := range intent.Lines {
		if _, err := r.q.ExecContext(ctx, lq, intent.Reference, l.Sku, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *PaymentRepository) GetIntent(ctx context.Context, referenceID string) (*domain.PaymentIntent, error) {
	q := `
        select reference_id, cart_id, principal, currency, total, created_at_ms, expire_at_ms
        from payment_intents
        where reference_id = ?
    `
	var in domain.PaymentIntent
	var currency string
	var createdMs, expireMs int64
	err := r.q.QueryRowContext(ctx, r.d.rebind(q), referenceID).Scan(
		&in.Reference,
		&in.CartID,
		&in.Principal,
		&currency,
		&in.Total,
		&createdMs,
		&expireMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	in.Currency = domain.Currency(currency)
	in.CreatedAtUtc = time.UnixMilli(createdMs).UTC()
	in.ExpireAt = time.UnixMilli(expireMs).UTC()

	lq := `select sku, qty from payment_intent_lines where reference_id = ? order by sku`
	rows, err := r.q.QueryContext(ctx, r.d.rebind(lq), referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.StockLine
		if err := rows.Scan(&l.Sku, &l.Quantity); err != nil {
			return nil, err
		}
		in.Lines = append(in.Lines, l)
	}
	return &in, rows.Err()
}

// DeleteIntentsBefore drops intents created before cutoff, paid or not.
func (r *PaymentRepository) DeleteIntentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	lq := `
        delete from payment_intent_lines
        where reference_id in (select reference_id from payment_intents where created_at_ms < ?)
    `
	if _, err := r.q.ExecContext(ctx, r.d.rebind(lq), cutoff.UnixMilli()); err != nil {
		return 0, err
	}
	res, err := r.q.ExecContext(ctx,
		r.d.rebind(`delete from payment_intents where created_at_ms < ?`), cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
