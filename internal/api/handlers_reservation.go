package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type reserveRequest struct {
	Sku string `json:"sku"`
	Qty int    `json:"qty"`
}

type reservationResponse struct {
	ID       string `json:"id"`
	Sku      string `json:"sku"`
	Qty      int    `json:"qty"`
	Status   string `json:"status"`
	ExpireAt string `json:"expire_at"`
}

type inventoryResponse struct {
	Sku       string `json:"sku"`
	Name      string `json:"name"`
	Inventory int    `json:"inventory"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:       r.ID.String(),
		Sku:      r.Sku,
		Qty:      r.Quantity,
		Status:   string(r.Status),
		ExpireAt: formatTime(r.ExpireAtUtc),
	}
}

// Handler POST /api/v1/reservations
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	cart := s.cartKey(r)
	if cart == "" {
		writeError(w, http.StatusNotFound, "not_found", "no cart cookie")
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := s.reservations.Reserve(r.Context(), cart, domain.ReservationRequest{
		Sku:      req.Sku,
		Quantity: req.Qty,
	}, s.cfg.ReservationHold)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(*res))
}

// Handler DELETE /api/v1/reservations/{sku}?qty=
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	cart := s.cartKey(r)
	if cart == "" {
		writeError(w, http.StatusNotFound, "not_found", "no cart cookie")
		return
	}

	qty, err := strconv.Atoi(r.URL.Query().Get("qty"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "qty must be an integer")
		return
	}

	if err := s.reservations.Release(r.Context(), cart, chi.URLParam(r, "sku"), qty, s.cfg.ReservationHold); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Handler GET /api/v1/reservations
func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	cart := s.cartKey(r)
	if cart == "" {
		writeError(w, http.StatusNotFound, "not_found", "no cart cookie")
		return
	}

	pending, err := s.reservations.Pending(r.Context(), cart)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]reservationResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, toReservationResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Handler GET /api/v1/inventory/{sku}
func (s *Server) handleGetInventoryBySku(w http.ResponseWriter, r *http.Request) {
	unit, err := s.reservations.Inventory(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryResponse{
		Sku:       unit.Sku,
		Name:      unit.ProductName,
		Inventory: unit.Inventory,
	})
}
