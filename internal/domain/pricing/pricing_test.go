package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testOptions() Options {
	return Options{
		FreeShippingThreshold: d("2000"),
		ShippingFee:           d("150"),
	}
}

func assertDecimalEqual(t *testing.T, want, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, want.Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		rule  *coupon.Rule
		want  Breakdown
	}{
		{
			name: "fixed coupon with free shipping",
			items: []Item{
				{ProductID: "hoodie", Price: d("3000"), OriginalPrice: d("3600"), Quantity: 2},
			},
			rule: &coupon.Rule{
				Code:         "SAVE500",
				DiscountType: coupon.DiscountFixed,
				Value:        d("500"),
			},
			want: Breakdown{
				ItemsPrice:     d("6000"),
				DiscountOnMRP:  d("1200"),
				CouponDiscount: d("500"),
				CouponCode:     "SAVE500",
				ShippingPrice:  d("0"),
				TotalPrice:     d("5500"),
			},
		},
		{
			name: "no coupon below free shipping threshold",
			items: []Item{
				{ProductID: "tee", Price: d("1500"), OriginalPrice: d("1500"), Quantity: 1},
			},
			want: Breakdown{
				ItemsPrice:     d("1500"),
				DiscountOnMRP:  d("0"),
				CouponDiscount: d("0"),
				ShippingPrice:  d("150"),
				TotalPrice:     d("1650"),
			},
		},
		{
			name: "percentage coupon capped at max discount",
			items: []Item{
				{ProductID: "jacket", Price: d("5400"), OriginalPrice: d("6200"), Quantity: 1},
			},
			rule: &coupon.Rule{
				Code:         "WELCOME10",
				DiscountType: coupon.DiscountPercentage,
				Value:        d("10"),
				MaxDiscount:  d("300"),
			},
			want: Breakdown{
				ItemsPrice:     d("5400"),
				DiscountOnMRP:  d("800"),
				CouponDiscount: d("300"),
				CouponCode:     "WELCOME10",
				ShippingPrice:  d("0"),
				TotalPrice:     d("5100"),
			},
		},
		{
			name: "percentage coupon below cap applies full percentage",
			items: []Item{
				{ProductID: "tee", Price: d("1200"), OriginalPrice: d("1500"), Quantity: 2},
			},
			rule: &coupon.Rule{
				Code:         "FESTIVE15",
				DiscountType: coupon.DiscountPercentage,
				Value:        d("15"),
				MaxDiscount:  d("750"),
			},
			want: Breakdown{
				ItemsPrice:     d("2400"),
				DiscountOnMRP:  d("600"),
				CouponDiscount: d("360"),
				CouponCode:     "FESTIVE15",
				ShippingPrice:  d("0"),
				TotalPrice:     d("2040"),
			},
		},
		{
			name: "uncapped percentage coupon",
			items: []Item{
				{ProductID: "tee", Price: d("1000"), OriginalPrice: d("1000"), Quantity: 1},
			},
			rule: &coupon.Rule{
				Code:         "TEN",
				DiscountType: coupon.DiscountPercentage,
				Value:        d("10"),
			},
			want: Breakdown{
				ItemsPrice:     d("1000"),
				DiscountOnMRP:  d("0"),
				CouponDiscount: d("100"),
				CouponCode:     "TEN",
				ShippingPrice:  d("150"),
				TotalPrice:     d("1050"),
			},
		},
		{
			name: "fixed coupon larger than subtotal is clamped",
			items: []Item{
				{ProductID: "tee", Price: d("400"), OriginalPrice: d("400"), Quantity: 1},
			},
			rule: &coupon.Rule{
				Code:         "SAVE500",
				DiscountType: coupon.DiscountFixed,
				Value:        d("500"),
			},
			want: Breakdown{
				ItemsPrice:     d("400"),
				DiscountOnMRP:  d("0"),
				CouponDiscount: d("400"),
				CouponCode:     "SAVE500",
				ShippingPrice:  d("150"),
				TotalPrice:     d("150"),
			},
		},
		{
			name: "coupon discount moves subtotal below free shipping threshold",
			items: []Item{
				{ProductID: "tee", Price: d("2100"), OriginalPrice: d("2100"), Quantity: 1},
			},
			rule: &coupon.Rule{
				Code:         "FLAT200",
				DiscountType: coupon.DiscountFixed,
				Value:        d("200"),
			},
			want: Breakdown{
				ItemsPrice:     d("2100"),
				DiscountOnMRP:  d("0"),
				CouponDiscount: d("200"),
				CouponCode:     "FLAT200",
				ShippingPrice:  d("150"),
				TotalPrice:     d("2050"),
			},
		},
		{
			name:  "empty selection",
			items: nil,
			want: Breakdown{
				ItemsPrice:     d("0"),
				DiscountOnMRP:  d("0"),
				CouponDiscount: d("0"),
				ShippingPrice:  d("150"),
				TotalPrice:     d("150"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.items, tt.rule, testOptions())
			require.NoError(t, err)

			assertDecimalEqual(t, tt.want.ItemsPrice, got.ItemsPrice, "items price")
			assertDecimalEqual(t, tt.want.DiscountOnMRP, got.DiscountOnMRP, "mrp discount")
			assertDecimalEqual(t, tt.want.CouponDiscount, got.CouponDiscount, "coupon discount")
			assert.Equal(t, tt.want.CouponCode, got.CouponCode)
			assertDecimalEqual(t, tt.want.ShippingPrice, got.ShippingPrice, "shipping")
			assertDecimalEqual(t, tt.want.TotalPrice, got.TotalPrice, "total")
		})
	}
}

func TestCompute_UnsupportedDiscountType(t *testing.T) {
	items := []Item{{ProductID: "p1", Price: d("100"), OriginalPrice: d("100"), Quantity: 1}}
	rule := &coupon.Rule{Code: "WEIRD", DiscountType: "bogo", Value: d("1")}

	_, err := Compute(items, rule, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported discount type")
}

func TestCompute_TotalNeverNegative(t *testing.T) {
	items := []Item{{ProductID: "p1", Price: d("100"), OriginalPrice: d("100"), Quantity: 1}}
	rule := &coupon.Rule{Code: "HUGE", DiscountType: coupon.DiscountFixed, Value: d("99999")}

	got, err := Compute(items, rule, testOptions())
	require.NoError(t, err)
	assert.False(t, got.TotalPrice.IsNegative())
	assertDecimalEqual(t, d("100"), got.CouponDiscount, "coupon discount")
}

// Compute is pure: pricing the same selection repeatedly, as a live preview
// does, must always produce the same breakdown and leave the inputs untouched.
func TestCompute_Deterministic(t *testing.T) {
	items := []Item{
		{ProductID: "p1", Price: d("1200"), OriginalPrice: d("1500"), Quantity: 2},
		{ProductID: "p2", Price: d("3000"), OriginalPrice: d("3600"), Quantity: 1},
	}
	rule := &coupon.Rule{
		Code:         "WELCOME10",
		DiscountType: coupon.DiscountPercentage,
		Value:        d("10"),
		MaxDiscount:  d("300"),
	}

	first, err := Compute(items, rule, testOptions())
	require.NoError(t, err)

	for range 5 {
		again, err := Compute(items, rule, testOptions())
		require.NoError(t, err)
		assertDecimalEqual(t, first.TotalPrice, again.TotalPrice, "total")
		assertDecimalEqual(t, first.CouponDiscount, again.CouponDiscount, "coupon discount")
		assertDecimalEqual(t, first.ShippingPrice, again.ShippingPrice, "shipping")
	}

	assert.Equal(t, 2, items[0].Quantity)
	assertDecimalEqual(t, d("1200"), items[0].Price, "input price")
}
