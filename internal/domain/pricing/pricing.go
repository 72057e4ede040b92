// Package pricing computes checkout totals from a frozen item selection and an
// already-validated coupon rule. All functions are pure: safe to call
// repeatedly for live previews, and the same inputs always yield the same
// breakdown.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Item is a single priced line in a checkout selection. Price is the selling
// price, OriginalPrice the pre-discount MRP of the variant/size.
type Item struct {
	ProductID     string
	VariantName   string
	Size          string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Quantity      int
}

// Options carries the shipping policy applied on top of item pricing.
type Options struct {
	// FreeShippingThreshold waives the shipping fee when the discounted
	// subtotal reaches it.
	FreeShippingThreshold decimal.Decimal
	// ShippingFee is the flat fee charged below the threshold.
	ShippingFee decimal.Decimal
}

// Breakdown is the frozen pricing snapshot stored on an order. DiscountOnMRP
// is reported separately from CouponDiscount for display purposes.
type Breakdown struct {
	ItemsPrice     decimal.Decimal
	DiscountOnMRP  decimal.Decimal
	CouponDiscount decimal.Decimal
	CouponCode     string
	ShippingPrice  decimal.Decimal
	TotalPrice     decimal.Decimal
}

// Compute prices the given selection. rule may be nil when no coupon applies;
// when present it must already have passed validation (active, temporal,
// minimum purchase) for this selection's subtotal.
func Compute(items []Item, rule *coupon.Rule, opts Options) (Breakdown, error) {
	subtotal := zero
	mrpDiscount := zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.Price.Mul(qty))
		mrpDiscount = mrpDiscount.Add(item.OriginalPrice.Sub(item.Price).Mul(qty))
	}
	mrpDiscount = floorAtZero(mrpDiscount)

	couponDiscount := zero
	couponCode := ""
	if rule != nil {
		d, err := applyRule(rule, subtotal)
		if err != nil {
			return Breakdown{}, err
		}
		couponDiscount = d
		couponCode = rule.Code
	}

	discounted := floorAtZero(subtotal.Sub(couponDiscount))

	shipping := opts.ShippingFee
	if discounted.GreaterThanOrEqual(opts.FreeShippingThreshold) {
		shipping = zero
	}

	total := floorAtZero(subtotal.Sub(couponDiscount).Add(shipping))

	return Breakdown{
		ItemsPrice:     subtotal.Round(2),
		DiscountOnMRP:  mrpDiscount.Round(2),
		CouponDiscount: couponDiscount.Round(2),
		CouponCode:     couponCode,
		ShippingPrice:  shipping.Round(2),
		TotalPrice:     total.Round(2),
	}, nil
}

// applyRule calculates the coupon discount for the given subtotal.
func applyRule(rule *coupon.Rule, subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch rule.DiscountType {
	case coupon.DiscountPercentage:
		amount := subtotal.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, rule.MaxDiscount)
		}
		return floorAtZero(amount).Round(2), nil
	case coupon.DiscountFixed:
		// A fixed discount larger than the subtotal is clamped so the total
		// can never go negative.
		return floorAtZero(decimal.Min(rule.Value, subtotal)).Round(2), nil
	default:
		return zero, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
