package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/address"
)

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	// MethodCOD is cash on delivery: the order is finalized immediately and
	// collected by the courier.
	MethodCOD PaymentMethod = "COD"
	// MethodESewa pays through the eSewa gateway via a browser redirect.
	MethodESewa PaymentMethod = "eSewa"
)

// PaymentStatus enumerates the payment state of an order.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// Item is a frozen order line. Prices are copied at draft-creation time, so
// later catalog changes never affect an existing order.
type Item struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Image         string          `json:"image"`
	VariantName   string          `json:"variant_name"`
	Size          string          `json:"size"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Quantity      int             `json:"quantity"`
}

// Order is the central checkout entity. It is created as a pending_payment
// draft with frozen item, address, and pricing snapshots, and only ever
// transitions status afterwards; orders are never deleted.
type Order struct {
	ID     string
	UserID string
	Items  []Item

	// ShippingAddress is a frozen copy, not a live reference.
	ShippingAddress address.Address

	ItemsPrice     decimal.Decimal
	DiscountOnMRP  decimal.Decimal
	CouponDiscount decimal.Decimal
	CouponCode     string
	ShippingPrice  decimal.Decimal
	TotalPrice     decimal.Decimal

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	PaidAt        *time.Time

	Status      Status
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Repository defines persistence for orders. Status-changing operations are
// compare-and-swap: they only apply when the order is in one of the expected
// source states and report whether the swap happened, so duplicate callbacks
// and concurrent cancels stay idempotent.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// UpdateDraft rewrites the address, coupon, and pricing snapshot of an
	// order that is still pending_payment.
	UpdateDraft(ctx context.Context, o *Order) error

	// TransitionStatus moves the order from any of the given source states to
	// the target state. It returns false when the order was not in a source
	// state (no change applied).
	TransitionStatus(ctx context.Context, id string, from []Status, to Status) (bool, error)

	// ConfirmCOD transitions pending_payment -> processing and records COD as
	// the payment method in one swap. Payment status stays unpaid.
	ConfirmCOD(ctx context.Context, id string) (bool, error)

	// MarkPaid transitions pending_payment -> processing and records the
	// payment method and time in one swap.
	MarkPaid(ctx context.Context, id string, method PaymentMethod, paidAt time.Time) (bool, error)

	// MarkPaymentFailed transitions pending_payment -> payment_failed with
	// payment status failed.
	MarkPaymentFailed(ctx context.Context, id string) (bool, error)

	// MarkDelivered transitions shipped -> delivered and sets DeliveredAt.
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)

	// ListStaleDrafts returns pending_payment orders created before the cutoff.
	ListStaleDrafts(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
}

// Redirect is the client-driven POST handoff to an external payment gateway.
type Redirect struct {
	Gateway string
	URL     string
	Fields  map[string]string
}

// Callback is a decoded, signature-verified gateway callback payload.
type Callback struct {
	TransactionID string
	Amount        decimal.Decimal
	Complete      bool
	RawStatus     string
}

// Gateway abstracts the redirect-based payment provider.
type Gateway interface {
	Name() string
	BuildRedirect(o *Order) (*Redirect, error)
	// DecodeCallback decodes and integrity-checks the gateway's encoded
	// callback payload. Tampered or malformed payloads fail here.
	DecodeCallback(encoded string) (*Callback, error)
}

// PaymentInitiation is the result of initiating payment on a draft: either a
// COD confirmation or a gateway redirect.
type PaymentInitiation struct {
	COD      bool
	Redirect *Redirect
}
