// Package coupon validates discount codes against their eligibility
// rules and computes the discounted price.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/backend/internal/domain"
)

// Store looks up coupons by code. A missing code is an ENOTFOUND error.
type Store interface {
	CouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// Application is the successful outcome of validating a coupon.
// FreeEnrollment marks the terminal case where the coupon grants the
// product outright: no paid order may be created, and FinalPriceCents
// is meaningless.
type Application struct {
	CouponID        uuid.UUID
	Descriptor      string
	FinalPriceCents int64
	FreeEnrollment  bool
}

// Validator applies coupon eligibility rules.
type Validator struct {
	store Store
	now   func() time.Time
}

// NewValidator creates a coupon validator backed by the given store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Apply validates code against a product and base price for a user.
// Rejections come back as EINVALID errors with a human-readable reason
// and never change the price.
func (v *Validator) Apply(ctx context.Context, code string, productID, userID uuid.UUID, basePriceCents int64) (*Application, error) {
	c, err := v.store.CouponByCode(ctx, code)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, domain.Errorf(domain.EINVALID, "coupon.apply", "coupon code %q is not valid", code)
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, "coupon.apply", "looking up coupon")
	}

	switch {
	case !c.Active:
		return nil, domain.Errorf(domain.EINVALID, "coupon.apply", "coupon %q is no longer active", code)
	case c.ExpiresAt != nil && v.now().After(*c.ExpiresAt):
		return nil, domain.Errorf(domain.EINVALID, "coupon.apply", "coupon %q has expired", code)
	case c.MaxUses > 0 && c.UsedCount >= c.MaxUses:
		return nil, domain.Errorf(domain.EINVALID, "coupon.apply", "coupon %q has reached its usage limit", code)
	case c.CourseID != nil && *c.CourseID != productID:
		return nil, domain.Errorf(domain.EINVALID, "coupon.apply", "coupon %q is not valid for this product", code)
	case c.AllowedUserID != nil && *c.AllowedUserID != userID:
		return nil, domain.Errorf(domain.EINVALID, "coupon.apply", "coupon %q is not available on this account", code)
	}

	if c.FreeEnrollment {
		return &Application{
			CouponID:       c.ID,
			Descriptor:     "free enrollment",
			FreeEnrollment: true,
		}, nil
	}

	if c.DiscountPercent <= 0 || c.DiscountPercent > 100 {
		return nil, domain.Errorf(domain.EINTERNAL, "coupon.apply", "coupon %q has a misconfigured discount", code)
	}

	discount := decimal.NewFromInt(basePriceCents).
		Mul(decimal.NewFromInt(c.DiscountPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()
	final := basePriceCents - discount
	if final < 0 || final >= basePriceCents {
		return nil, domain.Errorf(domain.EINTERNAL, "coupon.apply", "coupon %q produced an invalid price", code)
	}

	return &Application{
		CouponID:        c.ID,
		Descriptor:      fmt.Sprintf("%d%% off", c.DiscountPercent),
		FinalPriceCents: final,
	}, nil
}
