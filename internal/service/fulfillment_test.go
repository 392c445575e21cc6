package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/backend/internal/domain"
)

func TestFulfillCouponAccountingIsBestEffort(t *testing.T) {
	// The purchase already went through by the time usage accounting
	// runs, so a failed counter bump is logged and swallowed.
	course := testCourse()
	couponID := uuid.New()
	store := &mockStore{
		CourseByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
			return course, nil
		},
		IncrementCouponUseFunc: func(ctx context.Context, id uuid.UUID) error {
			return domain.Errorf(domain.EINTERNAL, "store.increment_coupon_use", "incrementing uses")
		},
	}

	enrolled := false
	store.UpsertEnrollmentFunc = func(ctx context.Context, userID, courseID, paymentID uuid.UUID, accessMonths int) error {
		enrolled = true
		return nil
	}

	var buf bytes.Buffer
	fulfiller := NewFulfiller(store, slog.New(slog.NewTextHandler(&buf, nil)))

	intent := &domain.CheckoutIntent{
		UserID:      uuid.New(),
		ProductType: domain.ProductCourse,
		ProductID:   course.ID,
		CouponCode:  "SAVE20",
		CouponID:    &couponID,
	}
	payment := &domain.Payment{ID: uuid.New(), AmountCents: 8000, Currency: "USD"}

	err := fulfiller.Fulfill(context.Background(), intent, payment)
	require.NoError(t, err, "a usage accounting miss must not undo the purchase")
	assert.True(t, enrolled)
	assert.Contains(t, buf.String(), "incrementing coupon use")
	assert.Contains(t, buf.String(), couponID.String())
}

func TestFulfillCouponAccountingSucceeds(t *testing.T) {
	course := testCourse()
	couponID := uuid.New()
	incremented := uuid.Nil
	store := &mockStore{
		CourseByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
			return course, nil
		},
		UpsertEnrollmentFunc: func(ctx context.Context, userID, courseID, paymentID uuid.UUID, accessMonths int) error {
			return nil
		},
		IncrementCouponUseFunc: func(ctx context.Context, id uuid.UUID) error {
			incremented = id
			return nil
		},
	}

	fulfiller := NewFulfiller(store, testLogger())
	err := fulfiller.Fulfill(context.Background(), &domain.CheckoutIntent{
		UserID:      uuid.New(),
		ProductType: domain.ProductCourse,
		ProductID:   course.ID,
		CouponID:    &couponID,
	}, &domain.Payment{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, couponID, incremented)
}
