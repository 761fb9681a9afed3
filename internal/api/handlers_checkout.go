package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/payment"
)

const weightUnit = "kg"

type checkoutResponse struct {
	Principal  string `json:"principal"`
	Currency   string `json:"currency"`
	SubTotal   string `json:"sub_total"`
	TaxName    string `json:"tax_name"`
	TaxRate    string `json:"tax_rate"`
	TaxTotal   string `json:"tax_total"`
	ShipCost   string `json:"ship_cost"`
	Weight     string `json:"weight"`
	WeightUnit string `json:"weight_unit"`
	Total      string `json:"total"`
}

type paymentResponse struct {
	Reference string `json:"reference"`
	PublicKey string `json:"public_key"`
	Currency  string `json:"currency"`
	Total     string `json:"total"`
	ExpireAt  string `json:"expire_at"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

func (s *Server) checkoutRequest(r *http.Request) (application.CheckoutRequest, error) {
	currency, err := domain.ParseCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		return application.CheckoutRequest{}, err
	}
	return application.CheckoutRequest{
		CartKey:   s.cartKey(r),
		Principal: strings.TrimSpace(r.Header.Get(PrincipalHeader)),
		Country:   strings.TrimSpace(r.URL.Query().Get("country")),
		Currency:  currency,
	}, nil
}

// Handler POST /api/v1/checkout?currency=&country=
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	req, err := s.checkoutRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q, err := s.checkout.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Principal:  q.Principal,
		Currency:   string(q.Currency),
		SubTotal:   q.Subtotal.StringFixed(2),
		TaxName:    q.TaxName,
		TaxRate:    q.TaxRate.String(),
		TaxTotal:   q.TaxTotal.StringFixed(2),
		ShipCost:   q.Shipping.StringFixed(2),
		Weight:     q.Weight.StringFixed(2),
		WeightUnit: weightUnit,
		Total:      q.Total.StringFixed(2),
	})
}

// Handler POST /api/v1/payment?currency=&country=
func (s *Server) handleInitializePayment(w http.ResponseWriter, r *http.Request) {
	req, err := s.checkoutRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	intent, err := s.checkout.InitializePayment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse{
		Reference: intent.Reference,
		PublicKey: intent.PublicKey,
		Currency:  string(intent.Currency),
		Total:     intent.Total.StringFixed(2),
		ExpireAt:  formatTime(intent.ExpireAt),
	})
}

// Handler POST /api/v1/payment/webhook
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}

	outcome, err := s.webhooks.Handle(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Status: string(outcome)})
}
