package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Terminal reports whether the reservation no longer owns an inventory hold
// that can be returned.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationConfirmed || s == ReservationExpired
}

// Reservation is a time-bounded hold of Quantity units of Sku for a cart.
// A cart owns at most one PENDING reservation per SKU.
type Reservation struct {
	ID           uuid.UUID
	CartID       string
	Sku          string
	Quantity     int
	Status       ReservationStatus
	CreatedAtUtc time.Time
	ExpireAtUtc  time.Time
	UpdatedAtUtc time.Time
}

func NewReservation(cartID, sku string, qty int, now time.Time, hold time.Duration) *Reservation {
	now = now.UTC()
	return &Reservation{
		ID:           uuid.New(),
		CartID:       cartID,
		Sku:          sku,
		Quantity:     qty,
		Status:       ReservationPending,
		CreatedAtUtc: now,
		ExpireAtUtc:  now.Add(hold),
		UpdatedAtUtc: now,
	}
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpireAtUtc)
}

// ReservationRequest is one (sku, qty) pair to hold for a cart.
type ReservationRequest struct {
	Sku      string
	Quantity int
}
