package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/cart"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/pricing"
)

// CreateDraftRequest selects a subset of the user's cart for checkout.
type CreateDraftRequest struct {
	ItemIDs    []string
	AddressID  string
	CouponCode string
}

// UpdateDraftRequest supersedes the address and/or coupon on a pending draft.
// Nil fields keep the current value; an empty CouponCode clears the coupon.
type UpdateDraftRequest struct {
	AddressID  *string
	CouponCode *string
}

// CreateDraft validates the selection and materializes a pending_payment order
// with frozen item, address, and pricing snapshots. Validation is fail-fast:
// the first failure wins and nothing is persisted. Stock is reserved
// atomically for the whole batch before the order is written, so two
// concurrent drafts for the last unit cannot both succeed.
func (s *Service) CreateDraft(ctx context.Context, userID string, req CreateDraftRequest) (*Order, error) {
	if len(req.ItemIDs) == 0 {
		return nil, ErrEmptyItems
	}

	lines, err := s.carts.GetItems(ctx, userID, req.ItemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}

	orderItems, priceItems, changes, err := resolveLines(lines)
	if err != nil {
		return nil, err
	}

	addr, err := s.addresses.GetByID(ctx, userID, req.AddressID)
	if err != nil {
		return nil, errors.Wrap(err, "get address")
	}

	var rule *coupon.Rule
	if req.CouponCode != "" {
		rule, err = s.coupons.Validate(ctx, req.CouponCode, subtotalOf(priceItems))
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
	}

	breakdown, err := pricing.Compute(priceItems, rule, s.pricing)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.ReserveStock(ctx, changes); err != nil {
		return nil, errors.Wrap(err, "reserve stock")
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           orderItems,
		ShippingAddress: *addr,
		ItemsPrice:      breakdown.ItemsPrice,
		DiscountOnMRP:   breakdown.DiscountOnMRP,
		CouponDiscount:  breakdown.CouponDiscount,
		CouponCode:      breakdown.CouponCode,
		ShippingPrice:   breakdown.ShippingPrice,
		TotalPrice:      breakdown.TotalPrice,
		PaymentStatus:   PaymentUnpaid,
		Status:          StatusPendingPayment,
		CreatedAt:       s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		// The reservation must not leak if the order row was never written.
		if relErr := s.catalog.ReleaseStock(ctx, changes); relErr != nil {
			zctx.From(ctx).Error("release stock after failed draft create",
				zap.String("order_id", o.ID), zap.Error(relErr))
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// UpdateDraft re-prices a pending draft with a new address and/or coupon. The
// item snapshot stays frozen; only the shipping address and coupon-dependent
// pricing fields change. A previously applied coupon that the new subtotal no
// longer admits is cleared and the removal is logged.
func (s *Service) UpdateDraft(ctx context.Context, orderID, userID string, req UpdateDraftRequest) (*Order, error) {
	o, err := s.getOwned(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPendingPayment {
		return nil, &StateConflictError{OrderID: o.ID, Current: o.Status, Attempted: "update draft"}
	}

	if req.AddressID != nil {
		addr, err := s.addresses.GetByID(ctx, userID, *req.AddressID)
		if err != nil {
			return nil, errors.Wrap(err, "get address")
		}
		o.ShippingAddress = *addr
	}

	code := o.CouponCode
	if req.CouponCode != nil {
		code = *req.CouponCode
	}

	priceItems := priceItemsOf(o.Items)

	var rule *coupon.Rule
	if code != "" {
		rule, err = s.coupons.Validate(ctx, code, subtotalOf(priceItems))
		switch {
		case err == nil:
		case errors.Is(err, coupon.ErrMinPurchaseNotMet) && req.CouponCode == nil:
			// The previously applied coupon no longer qualifies; drop it
			// rather than failing the whole update.
			zctx.From(ctx).Info("coupon removed from draft",
				zap.String("order_id", o.ID), zap.String("coupon", code))
			rule = nil
		default:
			return nil, errors.Wrap(err, "validate coupon")
		}
	}

	breakdown, err := pricing.Compute(priceItems, rule, s.pricing)
	if err != nil {
		return nil, err
	}

	o.CouponCode = breakdown.CouponCode
	o.CouponDiscount = breakdown.CouponDiscount
	o.ItemsPrice = breakdown.ItemsPrice
	o.DiscountOnMRP = breakdown.DiscountOnMRP
	o.ShippingPrice = breakdown.ShippingPrice
	o.TotalPrice = breakdown.TotalPrice

	if err := s.orders.UpdateDraft(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update draft")
	}
	return o, nil
}

// Preview prices a cart selection without persisting anything. It backs the
// live checkout preview and shares every rule with CreateDraft.
func (s *Service) Preview(ctx context.Context, userID string, itemIDs []string, couponCode string) (*pricing.Breakdown, error) {
	if len(itemIDs) == 0 {
		return nil, ErrEmptyItems
	}
	lines, err := s.carts.GetItems(ctx, userID, itemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}
	_, priceItems, _, err := resolveLines(lines)
	if err != nil {
		return nil, err
	}

	var rule *coupon.Rule
	if couponCode != "" {
		rule, err = s.coupons.Validate(ctx, couponCode, subtotalOf(priceItems))
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
	}

	breakdown, err := pricing.Compute(priceItems, rule, s.pricing)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// getOwned loads an order and checks ownership. Foreign orders are reported as
// not found rather than forbidden.
func (s *Service) getOwned(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// resolveLines turns cart lines into frozen order items, pricing input, and
// stock changes, rejecting missing products, unresolvable variants, and
// non-positive quantities.
func resolveLines(lines []cart.Item) ([]Item, []pricing.Item, []catalog.StockChange, error) {
	orderItems := make([]Item, 0, len(lines))
	priceItems := make([]pricing.Item, 0, len(lines))
	changes := make([]catalog.StockChange, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, nil, cart.ErrInvalidQuantity
		}
		if line.Missing() {
			return nil, nil, nil, &MissingProductError{ItemID: line.ID}
		}
		size, ok := line.Product.FindSize(line.VariantName, line.Size)
		if !ok {
			return nil, nil, nil, &UnavailableItemError{
				ProductID:   line.ProductID,
				VariantName: line.VariantName,
				Size:        line.Size,
			}
		}

		orderItems = append(orderItems, Item{
			ProductID:     line.ProductID,
			Name:          line.Product.Name,
			Image:         line.Product.Image,
			VariantName:   line.VariantName,
			Size:          line.Size,
			Price:         size.Price,
			OriginalPrice: size.OriginalPrice,
			Quantity:      line.Quantity,
		})
		priceItems = append(priceItems, pricing.Item{
			ProductID:     line.ProductID,
			VariantName:   line.VariantName,
			Size:          line.Size,
			Price:         size.Price,
			OriginalPrice: size.OriginalPrice,
			Quantity:      line.Quantity,
		})
		changes = append(changes, catalog.StockChange{
			SKU: catalog.SKU{
				ProductID:   line.ProductID,
				VariantName: line.VariantName,
				Size:        line.Size,
			},
			Quantity: line.Quantity,
		})
	}
	return orderItems, priceItems, changes, nil
}

func priceItemsOf(items []Item) []pricing.Item {
	out := make([]pricing.Item, len(items))
	for i, it := range items {
		out[i] = pricing.Item{
			ProductID:     it.ProductID,
			VariantName:   it.VariantName,
			Size:          it.Size,
			Price:         it.Price,
			OriginalPrice: it.OriginalPrice,
			Quantity:      it.Quantity,
		}
	}
	return out
}

func subtotalOf(items []pricing.Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}
