package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type StockUnitRepository interface {
	// GetBySku returns nil when the SKU does not exist.
	GetBySku(ctx context.Context, sku string) (*StockUnit, error)
	// Lock reads the SKU holding a row lock until the transaction ends.
	Lock(ctx context.Context, sku string) (*StockUnit, error)
	// Deduct removes qty units, failing with ErrInsufficientInventory rather
	// than letting inventory go negative.
	Deduct(ctx context.Context, sku string, qty int) error
	Restock(ctx context.Context, sku string, qty int) error
	InsertIfAbsent(ctx context.Context, unit *StockUnit) (bool, error)
	UpdateCatalogData(ctx context.Context, unit *StockUnit, prices []SkuPrice) error
}

type ReservationRepository interface {
	// GetPending returns nil when the cart holds nothing for the SKU.
	GetPending(ctx context.Context, cartID, sku string) (*Reservation, error)
	ListPendingByCart(ctx context.Context, cartID string) ([]Reservation, error)
	UpsertPending(ctx context.Context, r *Reservation) error
	// ShrinkPending lowers a PENDING hold by qty and moves its expiry. It
	// reports false when no PENDING hold of at least qty exists.
	ShrinkPending(ctx context.Context, cartID, sku string, qty int, expireAt, now time.Time) (bool, error)
	// Transition moves a reservation from one status to another and reports
	// false when it was no longer in the from status.
	Transition(ctx context.Context, id uuid.UUID, from, to ReservationStatus, now time.Time) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CartRepository interface {
	// SessionByCookie returns nil when no session owns the cookie key.
	SessionByCookie(ctx context.Context, cookie string) (*ShoppingSession, error)
	Lines(ctx context.Context, sessionID int64, currency Currency) ([]CartLine, error)
	RemoveItems(ctx context.Context, sessionID int64, skus []string) error
}

type ReferenceRepository interface {
	TaxByID(ctx context.Context, id int64) (*Tax, error)
	ShipSettingByCountryOrDefault(ctx context.Context, country string) (*ShipSetting, error)
}

type PaymentRepository interface {
	// InsertIfAbsent stores the record and its lines; false means a record
	// with the same reference already exists.
	InsertIfAbsent(ctx context.Context, rec *PaymentRecord) (bool, error)
	GetByReference(ctx context.Context, referenceID string) (*PaymentRecord, error)
	// ListByPrincipal returns the principal's payments, newest first.
	ListByPrincipal(ctx context.Context, principal string) ([]PaymentRecord, error)

	InsertIntent(ctx context.Context, intent *PaymentIntent) error
	// GetIntent returns nil when no intent was issued for the reference.
	GetIntent(ctx context.Context, referenceID string) (*PaymentIntent, error)
	DeleteIntentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRepository interface {
	Insert(ctx context.Context, msg OutboxMessage) error
	GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]OutboxMessage, error)
	Save(ctx context.Context, msg OutboxMessage) error
}

// Store groups the repositories. Repositories obtained from the Store passed
// to InTx share one transaction that commits only when fn returns nil.
type Store interface {
	Stock() StockUnitRepository
	Reservations() ReservationRepository
	Carts() CartRepository
	Reference() ReferenceRepository
	Payments() PaymentRepository
	Outbox() OutboxRepository
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type OutboxMessage struct {
	ID             uuid.UUID
	Type           string
	PayloadJSON    string
	OccurredAtUtc  int64 // unix millis
	RetryCount     int
	ProcessedAtUtc *int64
}
