package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

const releaseReasonHoldExpired = "HOLD_EXPIRED"

// SweepResult counts what one sweep did.
type SweepResult struct {
	Expired       int
	Skipped       int
	Failed        int
	Purged        int64
	PurgedIntents int64
}

// ReservationSweeper returns lapsed holds to inventory and purges old
// terminal reservations and payment intents.
type ReservationSweeper struct {
	store     domain.Store
	batchSize int
	retention time.Duration
	now       func() time.Time
}

func NewReservationSweeper(store domain.Store, batchSize int, retention time.Duration) *ReservationSweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReservationSweeper{
		store:     store,
		batchSize: batchSize,
		retention: retention,
		now:       time.Now,
	}
}

func (s *ReservationSweeper) WithClock(now func() time.Time) *ReservationSweeper {
	s.now = now
	return s
}

// Run satisfies the scheduler job signature.
func (s *ReservationSweeper) Run(ctx context.Context) error {
	_, err := s.SweepOnce(ctx)
	return err
}

// SweepOnce expires every due PENDING hold in its own transaction. A hold
// that fails is logged and left for the next tick; it never stops the others.
func (s *ReservationSweeper) SweepOnce(ctx context.Context) (result SweepResult, err error) {
	ctx, span := tracer.Start(ctx, "ReservationSweeper.SweepOnce")
	defer func() { endSpan(span, err) }()

	now := s.now().UTC()
	due, err := s.store.Reservations().ListExpiredPending(ctx, now, s.batchSize)
	if err != nil {
		return result, err
	}

	for i := range due {
		r := due[i]
		expired, err := s.expire(ctx, r, now)
		switch {
		case err != nil:
			result.Failed++
			slog.ErrorContext(ctx, "failed to expire reservation",
				"reservation_id", r.ID,
				"cart_id", r.CartID,
				"sku", r.Sku,
				"error", err)
		case expired:
			result.Expired++
		default:
			result.Skipped++
		}
	}

	var purgeErr error
	if s.retention > 0 {
		result.Purged, result.PurgedIntents, purgeErr = s.purge(ctx, now.Add(-s.retention))
		if purgeErr != nil {
			slog.ErrorContext(ctx, "failed to purge old rows", "error", purgeErr)
		}
	}

	span.SetAttributes(
		attribute.Int("expired", result.Expired),
		attribute.Int("skipped", result.Skipped),
		attribute.Int("failed", result.Failed),
		attribute.Int64("purged", result.Purged),
		attribute.Int64("purged_intents", result.PurgedIntents))

	if result.Expired > 0 || result.Failed > 0 || result.Purged > 0 || result.PurgedIntents > 0 {
		slog.InfoContext(ctx, "reservation sweep finished",
			"expired", result.Expired,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"purged", result.Purged,
			"purged_intents", result.PurgedIntents)
	}

	if result.Failed > 0 {
		return result, errors.Join(errSweepIncomplete, purgeErr)
	}
	return result, purgeErr
}

var errSweepIncomplete = errors.New("some reservations could not be expired")

func (s *ReservationSweeper) purge(ctx context.Context, cutoff time.Time) (holds, intents int64, err error) {
	holds, err = s.store.Reservations().DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}
	intents, err = s.store.Payments().DeleteIntentsBefore(ctx, cutoff)
	return holds, intents, err
}

// expire reports false when the hold is no longer due, for instance because
// a payment confirmed it or the cart extended it in the meantime.
func (s *ReservationSweeper) expire(ctx context.Context, r domain.Reservation, now time.Time) (bool, error) {
	var expired bool
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		current, err := expireHold(ctx, tx, r.CartID, r.Sku, func(h *domain.Reservation) bool {
			return h.ID == r.ID && h.IsExpired(now)
		}, now)
		if err != nil || current == nil {
			return err
		}
		expired = true
		return enqueueAll(ctx, tx, domain.NewReservationsExpiredEvent(
			r.CartID,
			releaseReasonHoldExpired,
			[]domain.StockLine{{Sku: current.Sku, Quantity: current.Quantity}},
		))
	})
	return expired && err == nil, err
}

// expireHold moves the cart's PENDING hold on sku to EXPIRED and gives its
// current quantity back. The SKU row is locked first, the same order reserve
// uses, and the hold is re-read under that lock. It returns nil when there is
// no hold or when eligible rejects it.
func expireHold(
	ctx context.Context,
	tx domain.Store,
	cartID, sku string,
	eligible func(*domain.Reservation) bool,
	now time.Time,
) (*domain.Reservation, error) {
	if _, err := tx.Stock().Lock(ctx, sku); err != nil {
		return nil, err
	}
	current, err := tx.Reservations().GetPending(ctx, cartID, sku)
	if err != nil || current == nil {
		return nil, err
	}
	if eligible != nil && !eligible(current) {
		return nil, nil
	}

	ok, err := tx.Reservations().Transition(ctx, current.ID, domain.ReservationPending, domain.ReservationExpired, now)
	if err != nil || !ok {
		return nil, err
	}
	if err := tx.Stock().Restock(ctx, sku, current.Quantity); err != nil {
		return nil, err
	}
	return current, nil
}
