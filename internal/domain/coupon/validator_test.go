package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type mockRepo struct {
	rules map[string]*Rule
	err   error
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rules[code]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return r, nil
}

func newValidator(now time.Time, rules ...*Rule) *RepoValidator {
	byCode := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		byCode[r.Code] = r
	}
	v := NewRepoValidator(&mockRepo{rules: byCode})
	v.now = func() time.Time { return now }
	return v
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		rule     Rule
		code     string
		subtotal decimal.Decimal
		wantErr  error
	}{
		{
			name:     "active coupon above minimum purchase",
			rule:     Rule{Code: "WELCOME10", DiscountType: DiscountPercentage, Value: d("10"), MinPurchase: d("1000"), Active: true},
			code:     "WELCOME10",
			subtotal: d("1500"),
		},
		{
			name:     "subtotal exactly at minimum purchase",
			rule:     Rule{Code: "SAVE500", DiscountType: DiscountFixed, Value: d("500"), MinPurchase: d("3000"), Active: true},
			code:     "SAVE500",
			subtotal: d("3000"),
		},
		{
			name:     "subtotal below minimum purchase",
			rule:     Rule{Code: "SAVE500", DiscountType: DiscountFixed, Value: d("500"), MinPurchase: d("3000"), Active: true},
			code:     "SAVE500",
			subtotal: d("2999.99"),
			wantErr:  ErrMinPurchaseNotMet,
		},
		{
			name:     "unknown code",
			rule:     Rule{Code: "WELCOME10", Active: true},
			code:     "NOPE",
			subtotal: d("1000"),
			wantErr:  ErrInvalidCoupon,
		},
		{
			name:     "inactive coupon",
			rule:     Rule{Code: "RETIRED", DiscountType: DiscountPercentage, Value: d("10"), Active: false},
			code:     "RETIRED",
			subtotal: d("1000"),
			wantErr:  ErrInvalidCoupon,
		},
		{
			name:     "not yet valid",
			rule:     Rule{Code: "SOON", DiscountType: DiscountPercentage, Value: d("10"), Active: true, ValidFrom: &future},
			code:     "SOON",
			subtotal: d("1000"),
			wantErr:  ErrCouponExpired,
		},
		{
			name:     "already expired",
			rule:     Rule{Code: "GONE", DiscountType: DiscountPercentage, Value: d("10"), Active: true, ValidUntil: &past},
			code:     "GONE",
			subtotal: d("1000"),
			wantErr:  ErrCouponExpired,
		},
		{
			name:     "inside validity window",
			rule:     Rule{Code: "NOW", DiscountType: DiscountPercentage, Value: d("10"), Active: true, ValidFrom: &past, ValidUntil: &future},
			code:     "NOW",
			subtotal: d("1000"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			v := newValidator(now, &rule)

			got, err := v.Validate(context.Background(), tt.code, tt.subtotal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.rule.Code, got.Code)
		})
	}
}

func TestValidate_RepoError(t *testing.T) {
	repoErr := errors.New("connection refused")
	v := NewRepoValidator(&mockRepo{err: repoErr})

	_, err := v.Validate(context.Background(), "WELCOME10", d("1000"))
	require.ErrorIs(t, err, repoErr)
	assert.NotErrorIs(t, err, ErrInvalidCoupon)
}
