package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// UpsertEnrollment enrolls a user in a course. Re-running for the same
// user and course extends the access window instead of failing, which
// keeps fulfillment retries safe.
func (s *Store) UpsertEnrollment(ctx context.Context, userID, courseID, paymentID uuid.UUID, accessMonths int) error {
	var expiresAt *time.Time
	if accessMonths > 0 {
		t := time.Now().AddDate(0, accessMonths, 0)
		expiresAt = &t
	}

	const q = `
		INSERT INTO enrollments (user_id, course_id, payment_id, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, course_id)
		DO UPDATE SET payment_id = EXCLUDED.payment_id, expires_at = EXCLUDED.expires_at`

	if _, err := s.pool.Exec(ctx, q, userID, courseID, paymentID, expiresAt); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.upsert_enrollment", "recording enrollment")
	}
	return nil
}

// InsertOrganizationSubscription activates a plan for an organization.
func (s *Store) InsertOrganizationSubscription(ctx context.Context, sub *domain.OrganizationSubscription) error {
	const q = `
		INSERT INTO organization_subscriptions
			(organization_id, plan_id, billing_period, payment_id, amount_cents, currency, status, current_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, q,
		sub.OrganizationID, sub.PlanID, sub.BillingPeriod, sub.PaymentID,
		sub.AmountCents, sub.Currency, sub.Status, sub.CurrentPeriodEnd,
	)
	if err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.insert_org_subscription", "recording organization subscription")
	}
	return nil
}
