package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/address"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/cart"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
	"github.com/sneha1789/timeless-tribe-checkout/internal/gateway/esewa"
)

// respondDomainError maps domain failures onto the HTTP error taxonomy:
// validation errors are 400/422 with a specific reason, state conflicts are
// 409 so clients can render "already processed", and payment integrity
// failures are 402 with the order forced to payment_failed upstream.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Validation.
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrUnknownMethod):
		respondError(w, r, http.StatusBadRequest, err.Error())

	case errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrMinPurchaseNotMet):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())

	// Lookup.
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "order not found")

	// Conflicts.
	case errors.Is(err, order.ErrAlreadyPaid):
		respondError(w, r, http.StatusConflict, err.Error())

	// Payment integrity.
	case errors.Is(err, esewa.ErrMalformedPayload),
		errors.Is(err, esewa.ErrBadSignature),
		errors.Is(err, order.ErrUnknownTransaction):
		respondError(w, r, http.StatusBadRequest, "invalid payment callback")

	default:
		var conflict *order.StateConflictError
		if errors.As(err, &conflict) {
			respondError(w, r, http.StatusConflict, conflict.Error())
			return
		}
		var incomplete *order.PaymentIncompleteError
		if errors.As(err, &incomplete) {
			respondError(w, r, http.StatusPaymentRequired, incomplete.Error())
			return
		}
		var mismatch *order.AmountMismatchError
		if errors.As(err, &mismatch) {
			respondError(w, r, http.StatusPaymentRequired, mismatch.Error())
			return
		}
		var missing *order.MissingProductError
		if errors.As(err, &missing) {
			respondError(w, r, http.StatusUnprocessableEntity, missing.Error())
			return
		}
		var unavailable *order.UnavailableItemError
		if errors.As(err, &unavailable) {
			respondError(w, r, http.StatusUnprocessableEntity, unavailable.Error())
			return
		}

		zctx.From(r.Context()).Error("internal error", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
