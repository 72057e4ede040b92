package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator resolves a coupon code and checks its applicability against a cart
// subtotal. The returned rule is applied by the pricing engine; validation and
// application are kept separate so applicability can be re-checked after every
// price-affecting mutation of a draft.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Rule, error)
}

// RepoValidator implements Validator by looking up coupon rules from a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for the given code and checks the active flag,
// temporal validity, and the minimum purchase threshold.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Rule, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.Active {
		return nil, ErrInvalidCoupon
	}

	now := v.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrCouponExpired
	}

	if subtotal.LessThan(rule.MinPurchase) {
		return nil, ErrMinPurchaseNotMet
	}

	return rule, nil
}
