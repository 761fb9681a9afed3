package api

import (
	"net/http"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type orderLineResponse struct {
	Sku  string `json:"sku"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type orderResponse struct {
	Reference string              `json:"reference"`
	CreatedAt string              `json:"created_at"`
	Currency  string              `json:"currency"`
	Total     string              `json:"total"`
	Lines     []orderLineResponse `json:"lines"`
}

func toOrderResponse(p domain.PaymentRecord) orderResponse {
	lines := make([]orderLineResponse, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, orderLineResponse{Sku: l.Sku, Name: l.ProductName, Qty: l.Quantity})
	}
	return orderResponse{
		Reference: p.ReferenceID,
		CreatedAt: formatTime(p.CreatedAtUtc),
		Currency:  string(p.Currency),
		Total:     p.Amount.StringFixed(2),
		Lines:     lines,
	}
}

// Handler GET /api/v1/orders
func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.History(r.Context(), r.Header.Get(PrincipalHeader))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}
