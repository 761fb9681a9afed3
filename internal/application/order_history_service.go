package application

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// OrderHistoryService lists the paid orders of a signed-in principal.
type OrderHistoryService struct {
	payments domain.PaymentRepository
}

func NewOrderHistoryService(payments domain.PaymentRepository) *OrderHistoryService {
	return &OrderHistoryService{payments: payments}
}

// History returns the principal's orders, newest first. Anonymous callers
// have no history.
func (s *OrderHistoryService) History(ctx context.Context, principal string) (orders []domain.PaymentRecord, err error) {
	ctx, span := tracer.Start(ctx, "OrderHistoryService.History")
	defer func() { endSpan(span, err) }()

	principal = strings.TrimSpace(principal)
	if principal == "" {
		return nil, fmt.Errorf("%w: sign in to see orders", domain.ErrUnauthenticated)
	}

	orders, err = s.payments.ListByPrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders", len(orders)))
	return orders, nil
}
