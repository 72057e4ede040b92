package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors. Validation failures reject the request with a specific
// reason and persist nothing; conflicts signal "not allowed in current state"
// so callers can render "already processed" instead of "invalid input".
var (
	ErrNotFound           = errors.New("order not found")
	ErrEmptyItems         = errors.New("items required")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrUnknownTransaction = errors.New("unknown transaction reference")
)

// StateConflictError reports an operation attempted in a state that does not
// allow it.
type StateConflictError struct {
	OrderID   string
	Current   Status
	Attempted string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order %s: cannot %s in state %s", e.OrderID, e.Attempted, e.Current)
}

// MissingProductError reports a cart line whose product no longer exists in
// the catalog.
type MissingProductError struct {
	ItemID string
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("cart item %s references a product that no longer exists", e.ItemID)
}

// UnavailableItemError reports a cart line whose variant/size cannot be
// resolved on its product.
type UnavailableItemError struct {
	ProductID   string
	VariantName string
	Size        string
}

func (e *UnavailableItemError) Error() string {
	return fmt.Sprintf("product %s has no variant %q size %q", e.ProductID, e.VariantName, e.Size)
}

// AmountMismatchError reports a gateway callback whose amount does not match
// the order's frozen total. The stored total is authoritative; the
// client-supplied amount is never trusted.
type AmountMismatchError struct {
	OrderID string
	Got     decimal.Decimal
	Want    decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("order %s: callback amount %s does not match total %s", e.OrderID, e.Got, e.Want)
}

// PaymentIncompleteError reports a gateway callback whose status is not
// COMPLETE. The order is moved to payment_failed and the user may retry.
type PaymentIncompleteError struct {
	OrderID   string
	RawStatus string
}

func (e *PaymentIncompleteError) Error() string {
	return fmt.Sprintf("order %s: payment not complete (gateway status %q)", e.OrderID, e.RawStatus)
}
