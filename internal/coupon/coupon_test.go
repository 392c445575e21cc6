package coupon

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/backend/internal/domain"
)

type mockStore struct {
	coupons map[string]*domain.Coupon
}

func (m *mockStore) CouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return nil, domain.Errorf(domain.ENOTFOUND, "", "coupon not found")
	}
	return c, nil
}

func TestApplyPercentageDiscount(t *testing.T) {
	// SAVE20 at 20% off a $100 base price yields $80.
	couponID := uuid.New()
	validator := NewValidator(&mockStore{coupons: map[string]*domain.Coupon{
		"SAVE20": {ID: couponID, Code: "SAVE20", DiscountPercent: 20, Active: true},
	}})

	app, err := validator.Apply(context.Background(), "SAVE20", uuid.New(), uuid.New(), 10000)
	require.NoError(t, err)

	assert.Equal(t, couponID, app.CouponID)
	assert.Equal(t, int64(8000), app.FinalPriceCents)
	assert.Equal(t, "20% off", app.Descriptor)
	assert.False(t, app.FreeEnrollment)
}

func TestApplyFreeEnrollmentShortCircuits(t *testing.T) {
	couponID := uuid.New()
	validator := NewValidator(&mockStore{coupons: map[string]*domain.Coupon{
		"SCHOLARSHIP": {ID: couponID, Code: "SCHOLARSHIP", Active: true, FreeEnrollment: true},
	}})

	app, err := validator.Apply(context.Background(), "SCHOLARSHIP", uuid.New(), uuid.New(), 10000)
	require.NoError(t, err)

	assert.True(t, app.FreeEnrollment)
	assert.Equal(t, couponID, app.CouponID)
	assert.Zero(t, app.FinalPriceCents)
}

func TestApplyRejections(t *testing.T) {
	courseID := uuid.New()
	otherCourse := uuid.New()
	userID := uuid.New()
	otherUser := uuid.New()
	expired := time.Now().Add(-24 * time.Hour)

	store := &mockStore{coupons: map[string]*domain.Coupon{
		"INACTIVE": {ID: uuid.New(), Active: false, DiscountPercent: 10},
		"EXPIRED":  {ID: uuid.New(), Active: true, DiscountPercent: 10, ExpiresAt: &expired},
		"USED-UP":  {ID: uuid.New(), Active: true, DiscountPercent: 10, MaxUses: 5, UsedCount: 5},
		"SCOPED":   {ID: uuid.New(), Active: true, DiscountPercent: 10, CourseID: &otherCourse},
		"PERSONAL": {ID: uuid.New(), Active: true, DiscountPercent: 10, AllowedUserID: &otherUser},
	}}
	validator := NewValidator(store)

	tests := []struct {
		name       string
		code       string
		wantReason string
	}{
		{"unknown code", "NOPE", "not valid"},
		{"inactive", "INACTIVE", "no longer active"},
		{"expired", "EXPIRED", "expired"},
		{"usage limit reached", "USED-UP", "usage limit"},
		{"scoped to another course", "SCOPED", "not valid for this product"},
		{"restricted to another user", "PERSONAL", "not available on this account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Apply(context.Background(), tt.code, courseID, userID, 10000)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.True(t, strings.Contains(domain.ErrorMessage(err), tt.wantReason),
				"reason %q should mention %q", domain.ErrorMessage(err), tt.wantReason)
		})
	}
}

func TestApplyScopedCouponOnItsCourse(t *testing.T) {
	courseID := uuid.New()
	validator := NewValidator(&mockStore{coupons: map[string]*domain.Coupon{
		"SCOPED": {ID: uuid.New(), Active: true, DiscountPercent: 50, CourseID: &courseID},
	}})

	app, err := validator.Apply(context.Background(), "SCOPED", courseID, uuid.New(), 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), app.FinalPriceCents)
}

func TestApplyMisconfiguredDiscount(t *testing.T) {
	validator := NewValidator(&mockStore{coupons: map[string]*domain.Coupon{
		"BROKEN": {ID: uuid.New(), Active: true, DiscountPercent: 0},
	}})

	_, err := validator.Apply(context.Background(), "BROKEN", uuid.New(), uuid.New(), 10000)
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
