// Package paypaltest provides an in-process fake of the PayPal REST endpoints used by tienda.
package paypaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"tienda/pkg/paypal"
)

// Server records calls and answers like the sandbox does for the happy path.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	orders       map[string]*paypal.Order
	requestIDs   map[string]string // PayPal-Request-Id -> response payload key
	TokenCalls   int
	CreateCalls  int
	CaptureCalls int
	RefundCalls  int
	// FailCapture makes every capture answer 422 UNPROCESSABLE_ENTITY.
	FailCapture bool
}

func NewServer() *Server {
	s := &Server{
		orders:     map[string]*paypal.Order{},
		requestIDs: map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", s.token)
	mux.HandleFunc("/v2/checkout/orders", s.createOrder)
	mux.HandleFunc("/v2/checkout/orders/", s.orderAction)
	mux.HandleFunc("/v2/payments/captures/", s.refund)
	s.Server = httptest.NewServer(mux)
	return s
}

// Config returns client settings pointing at the fake.
func (s *Server) Config() paypal.Config {
	return paypal.Config{ClientID: "client", ClientSecret: "secret", BaseURL: s.URL, HTTPClient: s.Client()}
}

// Approve simulates the buyer approving the checkout.
func (s *Server) Approve(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		o.Status = paypal.StatusApproved
	}
}

// Seed registers a provider order without going through CreateOrder.
func (s *Server) Seed(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[orderID] = &paypal.Order{ID: orderID, Status: paypal.StatusApproved}
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "client" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	s.TokenCalls++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"access_token": "test-token", "token_type": "Bearer", "expires_in": 3600})
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	var req paypal.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.PurchaseUnits) == 0 {
		writeJSON(w, http.StatusBadRequest, paypal.APIError{Name: "INVALID_REQUEST"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.requestIDs["create:"+r.Header.Get("PayPal-Request-Id")]; ok && id != "" {
		writeJSON(w, http.StatusOK, s.orders[id])
		return
	}
	s.CreateCalls++
	id := fmt.Sprintf("PP-%d", s.CreateCalls)
	order := &paypal.Order{
		ID:            id,
		Status:        paypal.StatusCreated,
		PurchaseUnits: req.PurchaseUnits,
		Links:         []paypal.Link{{Rel: "approve", Href: "https://www.sandbox.paypal.com/checkoutnow?token=" + id}},
	}
	s.orders[id] = order
	if rid := r.Header.Get("PayPal-Request-Id"); rid != "" {
		s.requestIDs["create:"+rid] = id
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) orderAction(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v2/checkout/orders/")
	id, action, _ := strings.Cut(rest, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, paypal.APIError{Name: "RESOURCE_NOT_FOUND"})
		return
	}
	if action == "" {
		writeJSON(w, http.StatusOK, order)
		return
	}

	s.CaptureCalls++
	if s.FailCapture {
		writeJSON(w, http.StatusUnprocessableEntity, paypal.APIError{
			Name:    "UNPROCESSABLE_ENTITY",
			Message: "The requested action could not be performed.",
			Details: []paypal.ErrorDetail{{Issue: "INSTRUMENT_DECLINED"}},
		})
		return
	}
	if order.Status == paypal.StatusCompleted {
		writeJSON(w, http.StatusUnprocessableEntity, paypal.APIError{
			Name:    "UNPROCESSABLE_ENTITY",
			Details: []paypal.ErrorDetail{{Issue: "ORDER_ALREADY_CAPTURED"}},
		})
		return
	}
	order.Status = paypal.StatusCompleted
	order.Payer = &paypal.Payer{PayerID: "PAYER1", EmailAddress: "buyer@example.com"}
	order.PurchaseUnits = []paypal.PurchaseUnit{{
		Payments: &paypal.Payments{Captures: []paypal.Capture{{ID: "CAP-" + id, Status: paypal.StatusCompleted}}},
	}}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v2/payments/captures/")
	captureID, _, _ := strings.Cut(rest, "/")

	s.mu.Lock()
	s.RefundCalls++
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, paypal.Refund{ID: "REF-" + captureID, Status: paypal.StatusCompleted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
