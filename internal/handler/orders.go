package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
)

// getOrder returns a single order owned by the caller.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"), userID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}

// listOrders returns the caller's orders, newest first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), userID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	views := make([]orderView, len(orders))
	for i := range orders {
		views[i] = toOrderView(&orders[i])
	}
	respondJSON(w, r, http.StatusOK, views)
}

// cancelOrder cancels an order on behalf of its owner. Cancelling an
// already-cancelled order returns 200 with the unchanged order.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "orderID"), userID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}

type transitionRequest struct {
	Status string `json:"status"`
}

// transitionOrder applies an admin fulfilment transition (shipped, delivered,
// on_hold, processing, cancelled) subject to the transition table.
func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	target := order.Status(req.Status)
	if !target.Valid() {
		respondError(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	o, err := h.orders.Transition(r.Context(), chi.URLParam(r, "orderID"), target)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}
