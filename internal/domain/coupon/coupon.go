package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal,
	// optionally capped at MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found or inactive.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrMinPurchaseNotMet is returned when the cart subtotal is below the
	// coupon's minimum purchase threshold.
	ErrMinPurchaseNotMet = errors.New("minimum purchase amount not met")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Rules are managed outside this service and are read-only here.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	// MaxDiscount caps percentage discounts. Zero means uncapped.
	MaxDiscount decimal.Decimal
	// MinPurchase is the minimum cart subtotal required to apply the coupon.
	MinPurchase decimal.Decimal
	Description string
	Active      bool
	ValidFrom   *time.Time
	ValidUntil  *time.Time
}

// Repository provides lookup of coupon rules. Codes match case-insensitively.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
