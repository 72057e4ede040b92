package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
)

const getCouponByCodeSQL = `SELECT code, discount_type, value, max_discount, min_purchase,
	description, active, valid_from, valid_until
	FROM coupons WHERE UPPER(code) = UPPER($1)`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrInvalidCoupon when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		validFrom    *time.Time
		validUntil   *time.Time
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value, &rule.MaxDiscount, &rule.MinPurchase,
		&rule.Description, &rule.Active, &validFrom, &validUntil,
	)
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
