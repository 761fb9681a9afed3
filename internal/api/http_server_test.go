package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/api"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db/dbtest"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/payment"
)

const (
	cookieName = "CARTCOOKIE"
	secret     = "sk_test"
)

type HTTPServerSuite struct {
	suite.Suite
	store    *db.Store
	handler  http.Handler
	paystack *payment.Paystack
}

func (s *HTTPServerSuite) SetupTest() {
	s.store = dbtest.NewStore(s.T())
	s.paystack = payment.NewPaystack(secret)

	cfg := config.Config{
		CartCookieName:  cookieName,
		CartCookieSplit: "|",
		ReservationHold: time.Hour,
	}
	reservations := application.NewReservationService(s.store)
	checkout := application.NewCheckoutService(s.store.Carts(), s.store.Reference(), reservations, cfg.ReservationHold, "pk_test")
	webhooks := application.NewWebhookReconciler(s.store, s.paystack)
	orders := application.NewOrderHistoryService(s.store.Payments())
	s.handler = api.NewServer(cfg, checkout, reservations, webhooks, orders).Routes()

	dbtest.SetTaxRate(s.T(), s.store, "VAT", "0.075")
	dbtest.SeedShipSetting(s.T(), s.store, domain.DefaultShipCountry, "5.00", "2500.00")
	dbtest.SeedStockUnit(s.T(), s.store, "ABC", 5, "1.5", "10.00", "8000.00")
	dbtest.SeedCart(s.T(), s.store, "session-1", map[string]int{"ABC": 2})
}

func (s *HTTPServerSuite) do(method, target, body string, withCookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if withCookie {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "session-1|device-xyz"})
	}
	req.Header.Set(api.PrincipalHeader, "buyer@example.com")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *HTTPServerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *HTTPServerSuite) TestHealthAndSwagger() {
	rec := s.do(http.MethodGet, "/health", "", false)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/swagger.json", "", false)
	s.Equal(http.StatusOK, rec.Code)
	s.True(json.Valid(rec.Body.Bytes()))
}

func (s *HTTPServerSuite) TestCheckoutQuote() {
	rec := s.do(http.MethodPost, "/api/v1/checkout?currency=usd&country=Atlantis", "", true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("buyer@example.com", body["principal"])
	s.Equal("USD", body["currency"])
	s.Equal("20.00", body["sub_total"])
	s.Equal("1.50", body["tax_total"])
	s.Equal("5.00", body["ship_cost"])
	s.Equal("3.00", body["weight"])
	s.Equal("kg", body["weight_unit"])
	s.Equal("26.50", body["total"])
}

func (s *HTTPServerSuite) TestCheckoutErrors() {
	rec := s.do(http.MethodPost, "/api/v1/checkout?currency=USD&country=x", "", false)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/checkout?currency=EUR&country=x", "", true)
	s.Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("invalid_request", body["error"])
}

func (s *HTTPServerSuite) TestPaymentInitialization() {
	rec := s.do(http.MethodPost, "/api/v1/payment?currency=USD&country=x", "", true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	s.decode(rec, &body)
	s.NotEmpty(body["reference"])
	s.Equal("pk_test", body["public_key"])
	s.Equal("26.50", body["total"])
	s.Equal(3, dbtest.Inventory(s.T(), s.store, "ABC"))
}

func (s *HTTPServerSuite) TestReservationLifecycle() {
	rec := s.do(http.MethodPost, "/api/v1/reservations", `{"sku":"ABC","qty":4}`, true)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/reservations", `{"sku":"ABC","qty":9}`, true)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/reservations", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []map[string]any
	s.decode(rec, &list)
	s.Require().Len(list, 1)
	s.EqualValues(4, list[0]["qty"])
	s.Equal("PENDING", list[0]["status"])

	rec = s.do(http.MethodGet, "/api/v1/inventory/ABC", "", false)
	s.Require().Equal(http.StatusOK, rec.Code)
	var inv map[string]any
	s.decode(rec, &inv)
	s.EqualValues(1, inv["inventory"])

	rec = s.do(http.MethodDelete, "/api/v1/reservations/ABC?qty=4", "", true)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal(5, dbtest.Inventory(s.T(), s.store, "ABC"))

	rec = s.do(http.MethodDelete, "/api/v1/reservations/ABC?qty=1", "", true)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/reservations/ABC?qty=lots", "", true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HTTPServerSuite) TestReservationRequiresCookie() {
	rec := s.do(http.MethodPost, "/api/v1/reservations", `{"sku":"ABC","qty":1}`, false)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/reservations", `{"sku":`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/inventory/NOPE", "", false)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HTTPServerSuite) webhook(body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", strings.NewReader(body))
	req.Header.Set(payment.SignatureHeader, signature)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// pay initializes a payment for the cookie cart and returns the reference
// with an unsigned success notification paying amount minor units for it.
func (s *HTTPServerSuite) pay(amount int) (reference, body string) {
	rec := s.do(http.MethodPost, "/api/v1/payment?currency=USD&country=x", "", true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var intent map[string]string
	s.decode(rec, &intent)
	reference = intent["reference"]
	body = fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success","amount":%d,"currency":"USD","metadata":{"cart_id":"session-1"}}}`,
		reference, amount)
	return reference, body
}

func (s *HTTPServerSuite) TestWebhook() {
	_, body := s.pay(2650)

	rec := s.webhook(body, "deadbeef")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.webhook(body, s.paystack.Sign([]byte(body)))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.JSONEq(`{"status":"confirmed"}`, rec.Body.String())

	rec = s.webhook(body, s.paystack.Sign([]byte(body)))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"duplicate"}`, rec.Body.String())

	malformed := `{"event":`
	rec = s.webhook(malformed, s.paystack.Sign([]byte(malformed)))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HTTPServerSuite) TestWebhookUnderpaymentIsRejected() {
	_, body := s.pay(1)

	rec := s.webhook(body, s.paystack.Sign([]byte(body)))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.JSONEq(`{"status":"rejected"}`, rec.Body.String())
	s.Equal(1, dbtest.CountReservations(s.T(), s.store, "session-1", "ABC", domain.ReservationPending))
}

func (s *HTTPServerSuite) TestOrderHistory() {
	reference, body := s.pay(2650)
	rec := s.webhook(body, s.paystack.Sign([]byte(body)))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/orders", "", false)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var orders []struct {
		Reference string `json:"reference"`
		Currency  string `json:"currency"`
		Total     string `json:"total"`
		Lines     []struct {
			Sku  string `json:"sku"`
			Name string `json:"name"`
			Qty  int    `json:"qty"`
		} `json:"lines"`
	}
	s.decode(rec, &orders)
	s.Require().Len(orders, 1)
	s.Equal(reference, orders[0].Reference)
	s.Equal("USD", orders[0].Currency)
	s.Equal("26.50", orders[0].Total)
	s.Require().Len(orders[0].Lines, 1)
	s.Equal("ABC", orders[0].Lines[0].Sku)
	s.Equal("product ABC", orders[0].Lines[0].Name)
	s.Equal(2, orders[0].Lines[0].Qty)

	anonymous := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, anonymous)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func TestHTTPServerSuite(t *testing.T) {
	suite.Run(t, new(HTTPServerSuite))
}
