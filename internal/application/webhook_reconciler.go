package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

const releaseReasonPaymentFailed = "PAYMENT_FAILED"

// WebhookVerifier authenticates and decodes one payment provider's webhook.
type WebhookVerifier interface {
	Verify(body []byte, signature string) error
	Decode(body []byte) (*domain.PaymentNotification, error)
}

type WebhookOutcome string

const (
	WebhookConfirmed WebhookOutcome = "confirmed"
	WebhookReleased  WebhookOutcome = "released"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookUnmatched WebhookOutcome = "unmatched"
	WebhookRejected  WebhookOutcome = "rejected"
	WebhookIgnored   WebhookOutcome = "ignored"
)

// WebhookReconciler turns provider notifications into reservation state.
type WebhookReconciler struct {
	store    domain.Store
	verifier WebhookVerifier
	now      func() time.Time
}

func NewWebhookReconciler(store domain.Store, verifier WebhookVerifier) *WebhookReconciler {
	return &WebhookReconciler{store: store, verifier: verifier, now: time.Now}
}

func (r *WebhookReconciler) WithClock(now func() time.Time) *WebhookReconciler {
	r.now = now
	return r
}

// Handle verifies the signature before reading anything from the body. Only
// a bad signature or an undecodable body is an error; duplicates, payments
// that match no hold and payments that disagree with their intent are
// acknowledged so the provider stops retrying.
func (r *WebhookReconciler) Handle(ctx context.Context, body []byte, signature string) (outcome WebhookOutcome, err error) {
	ctx, span := tracer.Start(ctx, "WebhookReconciler.Handle")
	defer func() {
		span.SetAttributes(attribute.String("webhook.outcome", string(outcome)))
		endSpan(span, err)
	}()

	if err := r.verifier.Verify(body, signature); err != nil {
		slog.WarnContext(ctx, "rejected payment webhook",
			"security_event", true,
			"error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidWebhookSignature, err)
	}

	n, err := r.verifier.Decode(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	span.SetAttributes(
		attribute.String("payment.reference", n.ReferenceID),
		attribute.String("payment.outcome", string(n.Outcome)),
		attribute.String("cart.id", n.CartID))

	switch n.Outcome {
	case domain.PaymentSucceeded:
		err = r.confirm(ctx, n)
		outcome = WebhookConfirmed
	case domain.PaymentFailed:
		err = r.release(ctx, n)
		outcome = WebhookReleased
	default:
		slog.InfoContext(ctx, "ignored payment webhook", "reference", n.ReferenceID)
		return WebhookIgnored, nil
	}

	switch {
	case errors.Is(err, domain.ErrDuplicateWebhookDelivery):
		slog.InfoContext(ctx, "duplicate payment webhook", "reference", n.ReferenceID)
		return WebhookDuplicate, nil
	case errors.Is(err, domain.ErrUnmatchedPayment):
		slog.WarnContext(ctx, "payment webhook matched no pending reservation",
			"reference", n.ReferenceID,
			"cart_id", n.CartID,
			"amount", n.Amount.StringFixed(2),
			"currency", n.Currency)
		return WebhookUnmatched, nil
	case errors.Is(err, domain.ErrPaymentMismatch):
		slog.WarnContext(ctx, "payment webhook disagrees with its checkout",
			"security_event", true,
			"reference", n.ReferenceID,
			"cart_id", n.CartID,
			"amount", n.Amount.StringFixed(2),
			"currency", n.Currency,
			"error", err)
		return WebhookRejected, nil
	case err != nil:
		return "", err
	}

	slog.InfoContext(ctx, "payment webhook reconciled",
		"reference", n.ReferenceID,
		"cart_id", n.CartID,
		"outcome", outcome)
	return outcome, nil
}

// confirm records the payment and settles the intent's holds in one
// transaction. The unique provider reference turns a redelivery into a no-op.
// A payment that does not match its intent leaves the holds PENDING, so they
// lapse through the sweeper unless a correct payment arrives first.
func (r *WebhookReconciler) confirm(ctx context.Context, n *domain.PaymentNotification) error {
	now := r.now().UTC()

	return r.store.InTx(ctx, func(tx domain.Store) error {
		existing, err := tx.Payments().GetByReference(ctx, n.ReferenceID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateWebhookDelivery
		}

		intent, err := intentFor(ctx, tx, n)
		if err != nil {
			return err
		}
		if n.Currency != intent.Currency || !n.Amount.Equal(intent.Due()) {
			return fmt.Errorf("%w: paid %s %s, due %s %s", domain.ErrPaymentMismatch,
				n.Amount.StringFixed(2), n.Currency, intent.Due().StringFixed(2), intent.Currency)
		}
		if len(n.Items) > 0 && !intent.SameLines(stockLines(n.Items)) {
			return fmt.Errorf("%w: paid items differ from the held lines", domain.ErrPaymentMismatch)
		}

		held, err := intentHolds(ctx, tx, intent)
		if err != nil {
			return err
		}

		lines := make([]domain.OrderLine, 0, len(held))
		skus := make([]string, 0, len(held))
		for _, h := range held {
			ok, err := tx.Reservations().Transition(ctx, h.ID, domain.ReservationPending, domain.ReservationConfirmed, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: hold on %s lapsed while confirming", domain.ErrUnmatchedPayment, h.Sku)
			}
			lines = append(lines, domain.OrderLine{ID: uuid.New(), Sku: h.Sku, Quantity: h.Quantity})
			skus = append(skus, h.Sku)
		}

		principal := intent.Principal
		if principal == "" {
			principal = n.Principal
		}
		rec := &domain.PaymentRecord{
			ID:           uuid.New(),
			ReferenceID:  n.ReferenceID,
			Provider:     n.Provider,
			CartID:       intent.CartID,
			Principal:    principal,
			Currency:     n.Currency,
			Amount:       n.Amount,
			Customer:     n.Customer,
			Address:      n.Address,
			CreatedAtUtc: now,
			Lines:        lines,
		}
		inserted, err := tx.Payments().InsertIfAbsent(ctx, rec)
		if err != nil {
			return err
		}
		if !inserted {
			// a concurrent delivery won; roll our transitions back
			return domain.ErrDuplicateWebhookDelivery
		}

		session, err := tx.Carts().SessionByCookie(ctx, intent.CartID)
		if err != nil {
			return err
		}
		if session != nil {
			if err := tx.Carts().RemoveItems(ctx, session.ID, skus); err != nil {
				return err
			}
		}

		return enqueueAll(ctx, tx, domain.NewOrderPaidEvent(rec))
	})
}

// release hands the intent's holds back to inventory after a failed payment.
func (r *WebhookReconciler) release(ctx context.Context, n *domain.PaymentNotification) error {
	now := r.now().UTC()

	return r.store.InTx(ctx, func(tx domain.Store) error {
		intent, err := intentFor(ctx, tx, n)
		if err != nil {
			return err
		}

		lines := make([]domain.StockLine, 0, len(intent.Lines))
		for _, l := range intent.Lines {
			released, err := expireHold(ctx, tx, intent.CartID, l.Sku, nil, now)
			if err != nil {
				return err
			}
			if released != nil {
				lines = append(lines, domain.StockLine{Sku: released.Sku, Quantity: released.Quantity})
			}
		}
		if len(lines) == 0 {
			return domain.ErrUnmatchedPayment
		}

		return enqueueAll(ctx, tx, domain.NewReservationsExpiredEvent(intent.CartID, releaseReasonPaymentFailed, lines))
	})
}

// intentFor loads the intent issued for the notification's reference. A
// reference the server never issued matches nothing.
func intentFor(ctx context.Context, tx domain.Store, n *domain.PaymentNotification) (*domain.PaymentIntent, error) {
	intent, err := tx.Payments().GetIntent(ctx, n.ReferenceID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, fmt.Errorf("%w: unknown reference %s", domain.ErrUnmatchedPayment, n.ReferenceID)
	}
	if n.CartID != "" && n.CartID != intent.CartID {
		return nil, fmt.Errorf("%w: cart %s does not own reference %s", domain.ErrPaymentMismatch, n.CartID, n.ReferenceID)
	}
	return intent, nil
}

// intentHolds returns the PENDING hold behind every intent line. None left
// means the payment came too late; some missing or resized means the cart
// changed after the intent was issued.
func intentHolds(ctx context.Context, tx domain.Store, intent *domain.PaymentIntent) ([]domain.Reservation, error) {
	held := make([]domain.Reservation, 0, len(intent.Lines))
	current := make([]domain.StockLine, 0, len(intent.Lines))
	for _, l := range intent.Lines {
		h, err := tx.Reservations().GetPending(ctx, intent.CartID, l.Sku)
		if err != nil {
			return nil, err
		}
		if h == nil {
			continue
		}
		held = append(held, *h)
		current = append(current, domain.StockLine{Sku: h.Sku, Quantity: h.Quantity})
	}

	switch {
	case len(held) == 0:
		return nil, domain.ErrUnmatchedPayment
	case !intent.SameLines(current):
		return nil, fmt.Errorf("%w: held lines differ from the intent", domain.ErrPaymentMismatch)
	}
	return held, nil
}

func stockLines(items []domain.ReservationRequest) []domain.StockLine {
	lines := make([]domain.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.StockLine{Sku: it.Sku, Quantity: it.Quantity})
	}
	return lines
}
