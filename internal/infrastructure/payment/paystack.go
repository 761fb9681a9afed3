package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

const (
	ProviderPaystack = "paystack"
	SignatureHeader  = "x-paystack-signature"
)

var (
	errMissingSignature = errors.New("missing signature")
	errSignatureFormat  = errors.New("signature is not hex")
	errSignatureInvalid = errors.New("signature mismatch")
	errMissingReference = errors.New("missing payment reference")
)

// minorUnits converts the provider's integer amounts (kobo, cents).
var minorUnits = decimal.NewFromInt(100)

// Paystack verifies and decodes Paystack webhooks. The signature is the hex
// HMAC-SHA512 of the raw body keyed by the secret key.
type Paystack struct {
	secret []byte
}

func NewPaystack(secretKey string) *Paystack {
	return &Paystack{secret: []byte(secretKey)}
}

func (p *Paystack) Sign(body []byte) string {
	mac := hmac.New(sha512.New, p.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *Paystack) Verify(body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errMissingSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return errSignatureFormat
	}

	mac := hmac.New(sha512.New, p.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return errSignatureInvalid
	}
	return nil
}

type webhookBody struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    string          `json:"paid_at"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
	Metadata webhookMetadata `json:"metadata"`
}

type webhookMetadata struct {
	CartID       string        `json:"cart_id"`
	Principal    string        `json:"principal"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	Address      string        `json:"address"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	Postcode     string        `json:"postcode"`
	Country      string        `json:"country"`
	DeliveryInfo string        `json:"delivery_info"`
	Items        []webhookItem `json:"items"`
}

type webhookItem struct {
	Sku string `json:"sku"`
	Qty int    `json:"qty"`
}

func (p *Paystack) Decode(body []byte) (*domain.PaymentNotification, error) {
	var b webhookBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("paystack: decode webhook: %w", err)
	}
	if strings.TrimSpace(b.Data.Reference) == "" {
		return nil, errMissingReference
	}

	n := &domain.PaymentNotification{
		Provider:    ProviderPaystack,
		ReferenceID: b.Data.Reference,
		Outcome:     outcome(b.Event, b.Data.Status),
		CartID:      strings.TrimSpace(b.Data.Metadata.CartID),
		Principal:   b.Data.Metadata.Principal,
		Amount:      b.Data.Amount.Div(minorUnits),
		Customer: domain.PaymentCustomer{
			Email: firstNonEmpty(b.Data.Customer.Email, b.Data.Metadata.Email),
			Name:  b.Data.Metadata.Name,
			Phone: b.Data.Metadata.Phone,
		},
		Address: domain.PaymentAddress{
			Address:      b.Data.Metadata.Address,
			City:         b.Data.Metadata.City,
			State:        b.Data.Metadata.State,
			Postcode:     b.Data.Metadata.Postcode,
			Country:      b.Data.Metadata.Country,
			DeliveryInfo: b.Data.Metadata.DeliveryInfo,
		},
	}

	if b.Data.Currency != "" {
		c, err := domain.ParseCurrency(b.Data.Currency)
		if err != nil {
			return nil, err
		}
		n.Currency = c
	}

	if b.Data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, b.Data.PaidAt); err == nil {
			n.PaidAtUtc = t.UTC()
		}
	}

	for _, it := range b.Data.Metadata.Items {
		n.Items = append(n.Items, domain.ReservationRequest{Sku: it.Sku, Quantity: it.Qty})
	}
	return n, nil
}

func outcome(event, status string) domain.PaymentOutcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return domain.PaymentSucceeded
	case "failed", "abandoned", "reversed":
		return domain.PaymentFailed
	}
	if strings.EqualFold(event, "charge.success") {
		return domain.PaymentSucceeded
	}
	return domain.PaymentIgnored
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
