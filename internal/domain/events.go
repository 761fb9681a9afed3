package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
)

// =========== Incoming payloads ===========

// ProductCreated (from catalog.events)
type ProductCreatedPayload struct {
	ProductID     uuid.UUID             `json:"productId"`
	Sku           string                `json:"sku"`
	Name          string                `json:"name"`
	StockQuantity int                   `json:"stockQuantity"`
	WeightKg      string                `json:"weightKg"`
	Prices        []ProductCreatedPrice `json:"prices"`
	CreatedAtUtc  time.Time             `json:"createdAtUtc"`
}

type ProductCreatedPrice struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// =========== Outgoing events ===========

type StockLine struct {
	Sku      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type StockReservedEvent struct {
	primitives.BaseEvent
	CartID      string      `json:"cartId"`
	ExpireAtUtc time.Time   `json:"expireAtUtc"`
	Lines       []StockLine `json:"lines"`
}

func NewStockReservedEvent(cartID string, expireAt time.Time, lines []StockLine) *StockReservedEvent {
	ev := &StockReservedEvent{
		BaseEvent:   primitives.NewBaseEvent(),
		CartID:      cartID,
		ExpireAtUtc: expireAt.UTC(),
		Lines:       lines,
	}
	ev.SetRoutingKey("StockReserved")
	return ev
}

type StockReleasedEvent struct {
	primitives.BaseEvent
	CartID        string    `json:"cartId"`
	Sku           string    `json:"sku"`
	Quantity      int       `json:"quantity"`
	Reason        string    `json:"reason"`
	OccurredAtUtc time.Time `json:"occurredAtUtc"`
}

func NewStockReleasedEvent(cartID, sku string, qty int, reason string) *StockReleasedEvent {
	ev := &StockReleasedEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		CartID:        cartID,
		Sku:           sku,
		Quantity:      qty,
		Reason:        reason,
		OccurredAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("StockReleased")
	return ev
}

// ReservationsExpired is raised when holds lapse or a payment fails and the
// held quantity goes back to inventory.
type ReservationsExpiredEvent struct {
	primitives.BaseEvent
	CartID        string      `json:"cartId"`
	Reason        string      `json:"reason"`
	Lines         []StockLine `json:"lines"`
	OccurredAtUtc time.Time   `json:"occurredAtUtc"`
}

func NewReservationsExpiredEvent(cartID, reason string, lines []StockLine) *ReservationsExpiredEvent {
	ev := &ReservationsExpiredEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		CartID:        cartID,
		Reason:        reason,
		Lines:         lines,
		OccurredAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("ReservationsExpired")
	return ev
}

type OrderPaidEvent struct {
	primitives.BaseEvent
	PaymentID   uuid.UUID   `json:"paymentId"`
	ReferenceID string      `json:"referenceId"`
	CartID      string      `json:"cartId"`
	Email       string      `json:"email"`
	Currency    string      `json:"currency"`
	Amount      string      `json:"amount"`
	PaidAtUtc   time.Time   `json:"paidAtUtc"`
	Lines       []StockLine `json:"lines"`
}

func NewOrderPaidEvent(rec *PaymentRecord) *OrderPaidEvent {
	lines := make([]StockLine, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		lines = append(lines, StockLine{Sku: l.Sku, Quantity: l.Quantity})
	}
	ev := &OrderPaidEvent{
		BaseEvent:   primitives.NewBaseEvent(),
		PaymentID:   rec.ID,
		ReferenceID: rec.ReferenceID,
		CartID:      rec.CartID,
		Email:       rec.Customer.Email,
		Currency:    string(rec.Currency),
		Amount:      rec.Amount.StringFixed(2),
		PaidAtUtc:   rec.CreatedAtUtc,
		Lines:       lines,
	}
	ev.SetRoutingKey("OrderPaid")
	return ev
}

// CatalogStockAdjusted (for Catalog, Search, etc.)
type CatalogStockAdjustedEvent struct {
	primitives.BaseEvent
	Sku           string    `json:"sku"`
	Inventory     int       `json:"inventory"`
	Reason        string    `json:"reason"`
	OccurredAtUtc time.Time `json:"occurredAtUtc"`
}

func NewCatalogStockAdjustedEvent(sku string, inventory int, reason string) *CatalogStockAdjustedEvent {
	ev := &CatalogStockAdjustedEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		Sku:           sku,
		Inventory:     inventory,
		Reason:        reason,
		OccurredAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("CatalogStockAdjusted")
	return ev
}
