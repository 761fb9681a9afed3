package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

const (
	releaseReasonCartUpdated = "CART_UPDATED"
	adjustReasonReserved     = "RESERVED"
	adjustReasonReleased     = "RELEASED"
)

// ReservationService owns every inventory movement caused by a cart: holding
// stock for checkout and handing it back.
type ReservationService struct {
	store domain.Store
	now   func() time.Time
}

func NewReservationService(store domain.Store) *ReservationService {
	return &ReservationService{store: store, now: time.Now}
}

// WithClock replaces the time source. Tests use it to move holds past expiry.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// Reserve holds req.Quantity units of req.Sku for the cart until now+hold. An
// existing PENDING hold for the same SKU is replaced, so only the difference
// is taken from or returned to inventory.
func (s *ReservationService) Reserve(
	ctx context.Context,
	cartID string,
	req domain.ReservationRequest,
	hold time.Duration,
) (*domain.Reservation, error) {
	res, err := s.ReserveCart(ctx, cartID, []domain.ReservationRequest{req}, hold)
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

// ReserveCart holds every request in one transaction. Either all lines are
// held or none are.
func (s *ReservationService) ReserveCart(
	ctx context.Context,
	cartID string,
	reqs []domain.ReservationRequest,
	hold time.Duration,
) ([]domain.Reservation, error) {
	return s.reserveCart(ctx, cartID, reqs, hold, nil)
}

// reserveCart runs then, when set, inside the reserving transaction once
// every line is held; an error from it undoes the holds.
func (s *ReservationService) reserveCart(
	ctx context.Context,
	cartID string,
	reqs []domain.ReservationRequest,
	hold time.Duration,
	then func(tx domain.Store, held []domain.Reservation, now time.Time) error,
) (reservations []domain.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.ReserveCart")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("cart.id", cartID), attribute.Int("lines", len(reqs)))

	if err := validateReservation(cartID, reqs, hold); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.store.InTx(ctx, func(tx domain.Store) error {
		reservations = reservations[:0]
		lines := make([]domain.StockLine, 0, len(reqs))
		adjusted := make([]domain.StockLine, 0, len(reqs))

		for _, req := range reqs {
			r, left, err := holdInTx(ctx, tx, cartID, req, now, hold)
			if err != nil {
				return err
			}
			reservations = append(reservations, *r)
			lines = append(lines, domain.StockLine{Sku: r.Sku, Quantity: r.Quantity})
			adjusted = append(adjusted, domain.StockLine{Sku: r.Sku, Quantity: left})
		}

		if err := enqueueAll(ctx, tx, stockEvents(cartID, now.Add(hold), lines, adjusted)...); err != nil {
			return err
		}
		if then == nil {
			return nil
		}
		return then(tx, reservations, now)
	})
	if err != nil {
		slog.WarnContext(ctx, "reservation failed",
			"cart_id", cartID,
			"lines", len(reqs),
			"error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "stock reserved",
		"cart_id", cartID,
		"lines", len(reservations),
		"expire_at", now.Add(hold))
	return reservations, nil
}

// holdInTx applies one request under the SKU row lock and returns the hold
// together with the inventory left after it.
func holdInTx(
	ctx context.Context,
	tx domain.Store,
	cartID string,
	req domain.ReservationRequest,
	now time.Time,
	hold time.Duration,
) (*domain.Reservation, int, error) {
	unit, err := tx.Stock().Lock(ctx, req.Sku)
	if err != nil {
		return nil, 0, err
	}

	existing, err := tx.Reservations().GetPending(ctx, cartID, req.Sku)
	if err != nil {
		return nil, 0, err
	}

	held := 0
	if existing != nil {
		held = existing.Quantity
	}

	delta := req.Quantity - held
	switch {
	case delta > 0:
		if err := tx.Stock().Deduct(ctx, req.Sku, delta); err != nil {
			return nil, 0, err
		}
	case delta < 0:
		if err := tx.Stock().Restock(ctx, req.Sku, -delta); err != nil {
			return nil, 0, err
		}
	}

	r := domain.NewReservation(cartID, req.Sku, req.Quantity, now, hold)
	if existing != nil {
		r.ID = existing.ID
		r.CreatedAtUtc = existing.CreatedAtUtc
	}
	if err := tx.Reservations().UpsertPending(ctx, r); err != nil {
		return nil, 0, err
	}
	return r, unit.Inventory - delta, nil
}

func stockEvents(cartID string, expireAt time.Time, lines, adjusted []domain.StockLine) []primitives.Event {
	events := make([]primitives.Event, 0, len(adjusted)+1)
	events = append(events, domain.NewStockReservedEvent(cartID, expireAt, lines))
	for _, a := range adjusted {
		events = append(events, domain.NewCatalogStockAdjustedEvent(a.Sku, a.Quantity, adjustReasonReserved))
	}
	return events
}

// Release hands qty units of the cart's PENDING hold on sku back to inventory.
// A hold that drops to zero is closed as EXPIRED.
func (s *ReservationService) Release(
	ctx context.Context,
	cartID, sku string,
	qty int,
	hold time.Duration,
) (err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Release")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("cart.id", cartID),
		attribute.String("sku", sku),
		attribute.Int("qty", qty))

	if strings.TrimSpace(cartID) == "" || strings.TrimSpace(sku) == "" {
		return fmt.Errorf("%w: cart and sku are required", domain.ErrInvalidArgument)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: release quantity must be positive, got %d", domain.ErrInvalidArgument, qty)
	}

	now := s.now().UTC()
	err = s.store.InTx(ctx, func(tx domain.Store) error {
		unit, err := tx.Stock().Lock(ctx, sku)
		if err != nil {
			return err
		}

		ok, err := tx.Reservations().ShrinkPending(ctx, cartID, sku, qty, now.Add(hold), now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no pending hold of %d for sku %s", domain.ErrNotFound, qty, sku)
		}

		if err := tx.Stock().Restock(ctx, sku, qty); err != nil {
			return err
		}

		left, err := tx.Reservations().GetPending(ctx, cartID, sku)
		if err != nil {
			return err
		}
		if left != nil && left.Quantity == 0 {
			if _, err := tx.Reservations().Transition(
				ctx, left.ID, domain.ReservationPending, domain.ReservationExpired, now,
			); err != nil {
				return err
			}
		}

		return enqueueAll(ctx, tx,
			domain.NewStockReleasedEvent(cartID, sku, qty, releaseReasonCartUpdated),
			domain.NewCatalogStockAdjustedEvent(sku, unit.Inventory+qty, adjustReasonReleased),
		)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "stock released", "cart_id", cartID, "sku", sku, "qty", qty)
	return nil
}

// Pending lists the cart's live holds.
func (s *ReservationService) Pending(ctx context.Context, cartID string) ([]domain.Reservation, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, fmt.Errorf("%w: cart is required", domain.ErrInvalidArgument)
	}
	return s.store.Reservations().ListPendingByCart(ctx, cartID)
}

// Inventory returns the SKU as currently available to new holds.
func (s *ReservationService) Inventory(ctx context.Context, sku string) (*domain.StockUnit, error) {
	unit, err := s.store.Stock().GetBySku(ctx, sku)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: sku %s", domain.ErrNotFound, sku)
	}
	return unit, nil
}

func validateReservation(cartID string, reqs []domain.ReservationRequest, hold time.Duration) error {
	if strings.TrimSpace(cartID) == "" {
		return fmt.Errorf("%w: cart is required", domain.ErrInvalidArgument)
	}
	if len(reqs) == 0 {
		return fmt.Errorf("%w: nothing to reserve", domain.ErrInvalidArgument)
	}
	if hold <= 0 {
		return fmt.Errorf("%w: hold must be positive", domain.ErrInvalidArgument)
	}

	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if strings.TrimSpace(r.Sku) == "" {
			return fmt.Errorf("%w: sku is required", domain.ErrInvalidArgument)
		}
		if r.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %s must be positive, got %d",
				domain.ErrInvalidArgument, r.Sku, r.Quantity)
		}
		if _, dup := seen[r.Sku]; dup {
			return fmt.Errorf("%w: sku %s listed twice", domain.ErrInvalidArgument, r.Sku)
		}
		seen[r.Sku] = struct{}{}
	}
	return nil
}
