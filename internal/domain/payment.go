package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "SUCCEEDED"
	PaymentFailed    PaymentOutcome = "FAILED"
	PaymentIgnored   PaymentOutcome = "IGNORED"
)

// PaymentNotification is a verified provider notification.
type PaymentNotification struct {
	Provider    string
	ReferenceID string
	Outcome     PaymentOutcome
	CartID      string
	Principal   string
	Currency    Currency
	Amount      decimal.Decimal
	PaidAtUtc   time.Time
	Customer    PaymentCustomer
	Address     PaymentAddress
	Items       []ReservationRequest
}

type PaymentCustomer struct {
	Email string
	Name  string
	Phone string
}

type PaymentAddress struct {
	Address      string
	City         string
	State        string
	Postcode     string
	Country      string
	DeliveryInfo string
}

// PaymentRecord is the durable trace of a confirmed payment. ReferenceID is
// unique: a second record with the same reference is a duplicate delivery.
type PaymentRecord struct {
	ID           uuid.UUID
	ReferenceID  string
	Provider     string
	CartID       string
	Principal    string
	Currency     Currency
	Amount       decimal.Decimal
	Customer     PaymentCustomer
	Address      PaymentAddress
	CreatedAtUtc time.Time
	Lines        []OrderLine
}

type OrderLine struct {
	ID          uuid.UUID
	Sku         string
	ProductName string
	Quantity    int
}

// PaymentIntent is what the server expects to be paid for a reference: the
// quoted total in one currency for the cart lines held at initialization.
type PaymentIntent struct {
	Reference    string
	PublicKey    string
	CartID       string
	Principal    string
	Currency     Currency
	Total        decimal.Decimal
	Lines        []StockLine
	CreatedAtUtc time.Time
	ExpireAt     time.Time
}

// Due is the amount the provider must report, in minor-unit precision.
func (i *PaymentIntent) Due() decimal.Decimal {
	return i.Total.Round(moneyPlaces)
}

// SameLines reports whether lines hold exactly the intent's SKUs and
// quantities, in any order.
func (i *PaymentIntent) SameLines(lines []StockLine) bool {
	if len(lines) != len(i.Lines) {
		return false
	}
	want := make(map[string]int, len(i.Lines))
	for _, l := range i.Lines {
		want[l.Sku] = l.Quantity
	}
	for _, l := range lines {
		q, ok := want[l.Sku]
		if !ok || q != l.Quantity {
			return false
		}
		delete(want, l.Sku)
	}
	return len(want) == 0
}
