package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// CheckoutRequest identifies the cart being checked out and how to price it.
type CheckoutRequest struct {
	CartKey   string
	Principal string
	Country   string
	Currency  domain.Currency
}

// CheckoutService prices carts and starts payments for them.
type CheckoutService struct {
	carts        domain.CartRepository
	reference    domain.ReferenceRepository
	reservations *ReservationService
	hold         time.Duration
	publicKey    string
}

func NewCheckoutService(
	carts domain.CartRepository,
	reference domain.ReferenceRepository,
	reservations *ReservationService,
	hold time.Duration,
	publicKey string,
) *CheckoutService {
	return &CheckoutService{
		carts:        carts,
		reference:    reference,
		reservations: reservations,
		hold:         hold,
		publicKey:    publicKey,
	}
}

// Quote prices the cart. It reads only; calling it twice on an unchanged cart
// yields the same quote.
func (s *CheckoutService) Quote(ctx context.Context, req CheckoutRequest) (quote *domain.CheckoutQuote, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.Quote")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("currency", string(req.Currency)),
		attribute.String("country", req.Country))

	quote, _, err = s.quote(ctx, req)
	return quote, err
}

func (s *CheckoutService) quote(ctx context.Context, req CheckoutRequest) (*domain.CheckoutQuote, []domain.CartLine, error) {
	if strings.TrimSpace(req.CartKey) == "" {
		return nil, nil, fmt.Errorf("%w: no cart cookie", domain.ErrNotFound)
	}

	session, err := s.carts.SessionByCookie(ctx, req.CartKey)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, fmt.Errorf("%w: invalid shopping session", domain.ErrNotFound)
	}

	lines, err := s.carts.Lines(ctx, session.ID, req.Currency)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: cart is empty", domain.ErrNotFound)
	}

	ship, err := s.reference.ShipSettingByCountryOrDefault(ctx, req.Country)
	if err != nil {
		return nil, nil, err
	}
	tax, err := s.reference.TaxByID(ctx, domain.ActiveTaxID)
	if err != nil {
		return nil, nil, err
	}

	q := domain.PriceCart(lines, *tax, *ship, req.Currency)
	q.Principal = req.Principal
	return &q, lines, nil
}

// InitializePayment prices the cart and holds every line of it for the
// configured hold so the provider can be paid before anyone else buys the
// stock. The intent is stored with the holds: the webhook for its reference
// must pay exactly this total for exactly these lines.
func (s *CheckoutService) InitializePayment(
	ctx context.Context,
	req CheckoutRequest,
) (intent *domain.PaymentIntent, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.InitializePayment")
	defer func() { endSpan(span, err) }()

	quote, lines, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}

	reqs := make([]domain.ReservationRequest, 0, len(lines))
	for _, l := range lines {
		reqs = append(reqs, domain.ReservationRequest{Sku: l.Sku, Quantity: l.Quantity})
	}

	_, err = s.reservations.reserveCart(ctx, req.CartKey, reqs, s.hold,
		func(tx domain.Store, held []domain.Reservation, now time.Time) error {
			intent = &domain.PaymentIntent{
				Reference:    uuid.NewString(),
				PublicKey:    s.publicKey,
				CartID:       req.CartKey,
				Principal:    req.Principal,
				Currency:     quote.Currency,
				Total:        quote.Total,
				Lines:        make([]domain.StockLine, 0, len(held)),
				CreatedAtUtc: now,
				ExpireAt:     now.Add(s.hold),
			}
			for _, h := range held {
				intent.Lines = append(intent.Lines, domain.StockLine{Sku: h.Sku, Quantity: h.Quantity})
			}
			return tx.Payments().InsertIntent(ctx, intent)
		})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.reference", intent.Reference))

	slog.InfoContext(ctx, "payment initialized",
		"cart_id", req.CartKey,
		"reference", intent.Reference,
		"currency", intent.Currency,
		"total", intent.Total.StringFixed(2))
	return intent, nil
}
