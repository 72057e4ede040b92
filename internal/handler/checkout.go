package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
)

type previewRequest struct {
	ItemIDs    []string `json:"itemIds"`
	CouponCode string   `json:"couponCode,omitempty"`
}

// preview prices a cart selection without creating anything. Backs the live
// totals shown on the checkout page.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	breakdown, err := h.orders.Preview(r.Context(), userID(r), req.ItemIDs, req.CouponCode)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toBreakdownView(breakdown))
}

type createDraftRequest struct {
	ItemIDs           []string `json:"itemIds"`
	ShippingAddressID string   `json:"shippingAddressId"`
	CouponCode        string   `json:"couponCode,omitempty"`
}

type createDraftResponse struct {
	OrderID    string  `json:"orderId"`
	TotalPrice float64 `json:"totalPrice"`
}

// createDraft materializes a pending_payment order from a cart selection.
func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.CreateDraft(r.Context(), userID(r), order.CreateDraftRequest{
		ItemIDs:    req.ItemIDs,
		AddressID:  req.ShippingAddressID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, createDraftResponse{
		OrderID:    o.ID,
		TotalPrice: o.TotalPrice.InexactFloat64(),
	})
}

type updateDraftRequest struct {
	ShippingAddressID *string `json:"shippingAddressId,omitempty"`
	CouponCode        *string `json:"couponCode,omitempty"`
}

// updateDraft supersedes the address and/or coupon on a pending draft.
func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req updateDraftRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateDraft(r.Context(), chi.URLParam(r, "orderID"), userID(r),
		order.UpdateDraftRequest{
			AddressID:  req.ShippingAddressID,
			CouponCode: req.CouponCode,
		})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}
