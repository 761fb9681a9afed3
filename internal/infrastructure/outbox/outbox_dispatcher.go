package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/abstractions"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// PublishFunc sends one stored event to the broker.
type PublishFunc func(ctx context.Context, eventType, payloadJSON string) error

// BusPublisher wraps each stored event in the standard integration envelope,
// routed by its type.
func BusPublisher(bus abstractions.EventBus) PublishFunc {
	return func(ctx context.Context, eventType, payloadJSON string) error {
		envelope := primitives.NewIntegrationEventEnvelope(eventType, payloadJSON)
		envelope.SetRoutingKey(eventType)
		return bus.Publish(ctx, &envelope)
	}
}

type Dispatcher struct {
	repo      domain.OutboxRepository
	publish   PublishFunc
	maxRetry  int
	batchSize int
}

func NewDispatcher(
	repo domain.OutboxRepository,
	publish PublishFunc,
	maxRetry, batchSize int,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		publish:   publish,
		maxRetry:  maxRetry,
		batchSize: batchSize,
	}
}

// Run satisfies the scheduler job signature.
func (d *Dispatcher) Run(ctx context.Context) error {
	n, err := d.DispatchOnce(ctx)
	if n > 0 {
		slog.InfoContext(ctx, "outbox dispatch processed messages", "count", n)
	}
	return err
}

// DispatchOnce publishes one batch. A message that fails is retried on later
// batches until it reaches maxRetry.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	msgs, err := d.repo.GetPendingBatch(ctx, d.maxRetry, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	processed := 0
	for i := range msgs {
		msg := &msgs[i]

		if !json.Valid([]byte(msg.PayloadJSON)) {
			slog.ErrorContext(ctx, "outbox: payload is not valid JSON", "id", msg.ID, "type", msg.Type)
			msg.RetryCount++
			d.save(ctx, msg)
			continue
		}

		if err := d.publish(ctx, msg.Type, msg.PayloadJSON); err != nil {
			slog.WarnContext(ctx, "outbox: failed to publish",
				"id", msg.ID,
				"type", msg.Type,
				"retry", msg.RetryCount+1,
				"error", err)
			msg.RetryCount++
		} else {
			now := time.Now().UTC().UnixMilli()
			msg.ProcessedAtUtc = &now
			processed++
		}

		d.save(ctx, msg)
	}

	return processed, nil
}

func (d *Dispatcher) save(ctx context.Context, msg *domain.OutboxMessage) {
	if err := d.repo.Save(ctx, *msg); err != nil {
		slog.ErrorContext(ctx, "outbox: failed to save message", "id", msg.ID, "error", err)
	}
}
