package order

import (
	"time"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/address"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/cart"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/pricing"
)

// Service owns the checkout flow: draft creation, payment initiation, gateway
// callback verification, and post-payment lifecycle transitions.
type Service struct {
	carts     cart.Repository
	catalog   catalog.Repository
	addresses address.Repository
	coupons   coupon.Validator
	orders    Repository
	gateway   Gateway
	pricing   pricing.Options
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	carts cart.Repository,
	cat catalog.Repository,
	addresses address.Repository,
	coupons coupon.Validator,
	orders Repository,
	gateway Gateway,
	opts pricing.Options,
) *Service {
	return &Service{
		carts:     carts,
		catalog:   cat,
		addresses: addresses,
		coupons:   coupons,
		orders:    orders,
		gateway:   gateway,
		pricing:   opts,
		now:       time.Now,
	}
}
