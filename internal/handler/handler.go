// Package handler exposes the checkout core over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sneha1789/timeless-tribe-checkout/internal/auth"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
)

// Handler wires the order service to HTTP routes.
type Handler struct {
	orders *order.Service
	tokens *auth.Service
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(orders *order.Service, tokens *auth.Service) *Handler {
	return &Handler{orders: orders, tokens: tokens}
}

// Routes returns the API router. The gateway callback is unauthenticated
// because it is the browser's return leg from the payment provider; everything
// else requires a bearer token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/payment/callback", h.paymentCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/checkout/preview", h.preview)
		r.Post("/orders", h.createDraft)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Patch("/orders/{orderID}", h.updateDraft)
		r.Post("/orders/{orderID}/payment", h.initiatePayment)
		r.Post("/orders/{orderID}/cancel", h.cancelOrder)
		r.Post("/orders/{orderID}/retry-payment", h.retryPayment)

		r.With(h.requireAdmin).Post("/orders/{orderID}/status", h.transitionOrder)
	})

	return r
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorBody{Code: status, Message: message})
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
