package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// PrincipalHeader carries the authenticated user set by the gateway.
const PrincipalHeader = "X-Principal"

const maxWebhookBody = 1 << 20

var tracer = otel.Tracer("github.com/RodolfoDevApp/eventshop-checkout-go/internal/api")

// Server groups the dependencies of the HTTP layer.
type Server struct {
	cfg          config.Config
	checkout     *application.CheckoutService
	reservations *application.ReservationService
	webhooks     *application.WebhookReconciler
	orders       *application.OrderHistoryService
}

func NewServer(
	cfg config.Config,
	checkout *application.CheckoutService,
	reservations *application.ReservationService,
	webhooks *application.WebhookReconciler,
	orders *application.OrderHistoryService,
) *Server {
	return &Server{
		cfg:          cfg,
		checkout:     checkout,
		reservations: reservations,
		webhooks:     webhooks,
		orders:       orders,
	}
}

// Routes builds the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(traceRequests)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/swagger.json", s.handleSwaggerJson)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", s.handleCheckout)
		r.Post("/payment", s.handleInitializePayment)
		r.Post("/payment/webhook", s.handleWebhook)

		r.Get("/orders", s.handleOrderHistory)

		r.Get("/reservations", s.handleListReservations)
		r.Post("/reservations", s.handleReserve)
		r.Delete("/reservations/{sku}", s.handleRelease)

		r.Get("/inventory/{sku}", s.handleGetInventoryBySku)
	})
	return r
}

// traceRequests continues the caller's trace and opens a server span per
// request, named after the matched route.
func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.request_id", middleware.GetReqID(ctx)))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			span.SetName(r.Method + " " + rc.RoutePattern())
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleSwaggerJson(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPISpec))
}

// cartKey reads the session key out of the cart cookie, or "" without one.
func (s *Server) cartKey(r *http.Request) string {
	c, err := r.Cookie(s.cfg.CartCookieName)
	if err != nil {
		return ""
	}
	return domain.CartKey(c.Value, s.cfg.CartCookieSplit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON error", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// writeServiceError maps domain errors to status codes. Anything unmapped is
// logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		writeError(w, http.StatusConflict, "insufficient_inventory", err.Error())
	case errors.Is(err, domain.ErrInvalidWebhookSignature):
		writeError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
