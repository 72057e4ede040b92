package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
)

type initiatePaymentRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type codResponse struct {
	COD     bool   `json:"cod"`
	OrderID string `json:"orderId"`
}

type redirectResponse struct {
	PaymentGateway string            `json:"paymentGateway"`
	PaymentURL     string            `json:"paymentUrl"`
	FormData       map[string]string `json:"formData"`
}

// initiatePayment starts payment on a draft. COD finalizes immediately; the
// gateway branch returns the signed form for a client-driven redirect.
func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	result, err := h.orders.InitiatePayment(r.Context(), orderID, userID(r),
		order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if result.COD {
		respondJSON(w, r, http.StatusOK, codResponse{COD: true, OrderID: orderID})
		return
	}
	respondJSON(w, r, http.StatusOK, redirectResponse{
		PaymentGateway: result.Redirect.Gateway,
		PaymentURL:     result.Redirect.URL,
		FormData:       result.Redirect.Fields,
	})
}

// paymentCallback is the gateway's return leg. The encoded payload arrives as
// the data query parameter on a browser redirect, so this endpoint carries no
// bearer token; the payload's own signature authenticates it.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	encoded := r.URL.Query().Get("data")
	if encoded == "" {
		respondError(w, r, http.StatusBadRequest, "missing callback data")
		return
	}

	o, err := h.orders.VerifyCallback(r.Context(), encoded)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}

// retryPayment moves a payment_failed order back to pending_payment.
func (h *Handler) retryPayment(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.RetryPayment(r.Context(), chi.URLParam(r, "orderID"), userID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}
