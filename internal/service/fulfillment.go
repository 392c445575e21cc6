package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// FulfillmentStore persists the local effects of a completed payment.
type FulfillmentStore interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	PlanByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error)
	UpsertEnrollment(ctx context.Context, userID, courseID, paymentID uuid.UUID, accessMonths int) error
	InsertOrganizationSubscription(ctx context.Context, sub *domain.OrganizationSubscription) error
	IncrementCouponUse(ctx context.Context, id uuid.UUID) error
}

// Fulfiller executes the side effect a payment pays for: course
// enrollment or an organization plan upgrade. Each action runs at most
// once per Payment; the caller owns idempotency and rollback.
type Fulfiller struct {
	store  FulfillmentStore
	logger *slog.Logger
	now    func() time.Time
}

// NewFulfiller creates a Fulfiller backed by the given store.
func NewFulfiller(store FulfillmentStore, logger *slog.Logger) *Fulfiller {
	return &Fulfiller{store: store, logger: logger, now: time.Now}
}

// Fulfill applies the action the intent describes, keyed by product
// type. The payment row must already be durably recorded.
func (f *Fulfiller) Fulfill(ctx context.Context, intent *domain.CheckoutIntent, payment *domain.Payment) error {
	const op = "fulfillment.fulfill"

	switch intent.ProductType {
	case domain.ProductCourse:
		if err := f.enrollInCourse(ctx, intent, payment); err != nil {
			return err
		}
	case domain.ProductPlan:
		if err := f.upgradeOrganizationPlan(ctx, intent, payment); err != nil {
			return err
		}
	default:
		return domain.Errorf(domain.EINVALID, op, "unknown product type %q", intent.ProductType)
	}

	if intent.CouponID != nil {
		// Usage accounting is best effort: the purchase already
		// succeeded, so a miss here must not roll it back.
		if err := f.store.IncrementCouponUse(ctx, *intent.CouponID); err != nil {
			f.logger.Warn("incrementing coupon use",
				"coupon_id", intent.CouponID.String(),
				"payment_id", payment.ID.String(),
				"error", err)
		}
	}
	return nil
}

func (f *Fulfiller) enrollInCourse(ctx context.Context, intent *domain.CheckoutIntent, payment *domain.Payment) error {
	course, err := f.store.CourseByID(ctx, intent.ProductID)
	if err != nil {
		return err
	}
	return f.store.UpsertEnrollment(ctx, intent.UserID, course.ID, payment.ID, course.AccessMonths)
}

func (f *Fulfiller) upgradeOrganizationPlan(ctx context.Context, intent *domain.CheckoutIntent, payment *domain.Payment) error {
	const op = "fulfillment.upgrade_plan"

	if intent.OrganizationID == nil {
		return domain.Errorf(domain.EINVALID, op, "plan payment %s has no organization", payment.ID)
	}
	if !intent.BillingPeriod.Valid() {
		return domain.Errorf(domain.EINVALID, op, "plan payment %s has no billing period", payment.ID)
	}

	plan, err := f.store.PlanByID(ctx, intent.ProductID)
	if err != nil {
		return err
	}

	now := f.now()
	return f.store.InsertOrganizationSubscription(ctx, &domain.OrganizationSubscription{
		ID:               uuid.New(),
		OrganizationID:   *intent.OrganizationID,
		PlanID:           plan.ID,
		BillingPeriod:    intent.BillingPeriod,
		PaymentID:        payment.ID,
		AmountCents:      payment.AmountCents,
		Currency:         payment.Currency,
		Status:           "active",
		CurrentPeriodEnd: now.AddDate(0, intent.BillingPeriod.Months(), 0),
		CreatedAt:        now,
	})
}
