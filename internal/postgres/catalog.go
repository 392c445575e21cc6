package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/backend/internal/domain"
)

// CourseByID loads a course from the catalog.
func (s *Store) CourseByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	const q = `
		SELECT id, slug, title, base_price_cents, access_months
		FROM courses
		WHERE id = $1`

	var c domain.Course
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Slug, &c.Title, &c.BasePriceCents, &c.AccessMonths)
	if err != nil {
		return nil, notFoundOr(err, "store.course_by_id", "course %s not found", id)
	}
	return &c, nil
}

// PlanByID loads a subscription plan from the catalog.
func (s *Store) PlanByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	const q = `
		SELECT id, slug, name, monthly_cents, annual_cents
		FROM subscription_plans
		WHERE id = $1`

	var p domain.SubscriptionPlan
	err := s.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Slug, &p.Name, &p.MonthlyCents, &p.AnnualCents)
	if err != nil {
		return nil, notFoundOr(err, "store.plan_by_id", "plan %s not found", id)
	}
	return &p, nil
}

// ActiveRate returns the active exchange rate from base to target.
func (s *Store) ActiveRate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	const q = `
		SELECT rate
		FROM exchange_rates
		WHERE base_currency = $1 AND target_currency = $2 AND active`

	var rate decimal.Decimal
	err := s.pool.QueryRow(ctx, q, base, target).Scan(&rate)
	if err != nil {
		return decimal.Zero, notFoundOr(err, "store.active_rate", "no active rate from %s to %s", base, target)
	}
	return rate, nil
}

// CouponByCode loads a coupon by its code.
func (s *Store) CouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	const q = `
		SELECT id, code, discount_percent, course_id, allowed_user_id,
		       max_uses, used_count, expires_at, active, free_enrollment
		FROM coupons
		WHERE code = $1`

	var c domain.Coupon
	err := s.pool.QueryRow(ctx, q, code).Scan(
		&c.ID, &c.Code, &c.DiscountPercent, &c.CourseID, &c.AllowedUserID,
		&c.MaxUses, &c.UsedCount, &c.ExpiresAt, &c.Active, &c.FreeEnrollment,
	)
	if err != nil {
		return nil, notFoundOr(err, "store.coupon_by_code", "coupon %q not found", code)
	}
	return &c, nil
}

// IncrementCouponUse bumps a coupon's usage counter after a successful
// fulfillment.
func (s *Store) IncrementCouponUse(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`

	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.increment_coupon_use", "incrementing coupon usage")
	}
	return nil
}
