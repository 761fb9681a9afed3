package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type OutboxRepository struct {
	q querier
	d Dialect
}

func (r *OutboxRepository) Insert(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.OccurredAtUtc == 0 {
		msg.OccurredAtUtc = time.Now().UTC().UnixMilli()
	}

	q := `
        insert into outbox_messages
        (id, type, payload_json, occurred_at_ms, retry_count, processed_at_ms)
        values (?,?,?,?,?,null)
    `
	_, err := r.q.ExecContext(
		ctx, r.d.rebind(q),
		msg.ID,
		msg.Type,
		msg.PayloadJSON,
		msg.OccurredAtUtc,
		msg.RetryCount,
	)
	return err
}

func (r *OutboxRepository) GetPendingBatch(
	ctx context.Context,
	maxRetry, batchSize int,
) ([]domain.OutboxMessage, error) {
	q := `
        select id, type, payload_json, occurred_at_ms, retry_count, processed_at_ms
        from outbox_messages
        where processed_at_ms is null
          and retry_count < ?
        order by occurred_at_ms asc
        limit ?
    `
	rows, err := r.q.QueryContext(ctx, r.d.rebind(q), maxRetry, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		var processedAt sql.NullInt64
		if err := rows.Scan(
			&msg.ID,
			&msg.Type,
			&msg.PayloadJSON,
			&msg.OccurredAtUtc,
			&msg.RetryCount,
			&processedAt,
		); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			t := processedAt.Int64
			msg.ProcessedAtUtc = &t
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *OutboxRepository) Save(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		return errors.New("outbox message id is empty")
	}

	var processed sql.NullInt64
	if msg.ProcessedAtUtc != nil {
		processed = sql.NullInt64{Int64: *msg.ProcessedAtUtc, Valid: true}
	}

	q := `
        update outbox_messages
        set retry_count = ?,
            processed_at_ms = coalesce(?, processed_at_ms)
        where id = ?
    `
	_, err := r.q.ExecContext(ctx, r.d.rebind(q), msg.RetryCount, processed, msg.ID)
	return err
}
