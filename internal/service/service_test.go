package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/telemetry"
)

// mockStore implements the service store interfaces for testing
type mockStore struct {
	CourseByIDFunc                     func(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	PlanByIDFunc                       func(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error)
	MembershipByUserFunc               func(ctx context.Context, orgID, userID uuid.UUID) (*domain.OrganizationMember, error)
	UpsertEnrollmentFunc               func(ctx context.Context, userID, courseID, paymentID uuid.UUID, accessMonths int) error
	InsertOrganizationSubscriptionFunc func(ctx context.Context, sub *domain.OrganizationSubscription) error
	IncrementCouponUseFunc             func(ctx context.Context, id uuid.UUID) error
	PaymentByProviderPaymentIDFunc     func(ctx context.Context, providerPaymentID string) (*domain.Payment, error)
	InsertPaymentFunc                  func(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	DeletePaymentFunc                  func(ctx context.Context, id uuid.UUID) error
	InsertPaymentEventFunc             func(ctx context.Context, provider, providerPaymentID string, payload []byte) error
	TransferByIDFunc                   func(ctx context.Context, id uuid.UUID) (*domain.BankTransfer, error)
	CourseIDByOrderIDFunc              func(ctx context.Context, orderID string) (uuid.UUID, error)
	UpdateTransferReceiptFunc          func(ctx context.Context, id, paymentID uuid.UUID, courseID uuid.UUID, receiptURL string) error
}

func (m *mockStore) CourseByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	if m.CourseByIDFunc != nil {
		return m.CourseByIDFunc(ctx, id)
	}
	return nil, domain.Errorf(domain.ENOTFOUND, "", "course %s not found", id)
}

func (m *mockStore) PlanByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	if m.PlanByIDFunc != nil {
		return m.PlanByIDFunc(ctx, id)
	}
	return nil, domain.Errorf(domain.ENOTFOUND, "", "plan %s not found", id)
}

func (m *mockStore) MembershipByUser(ctx context.Context, orgID, userID uuid.UUID) (*domain.OrganizationMember, error) {
	if m.MembershipByUserFunc != nil {
		return m.MembershipByUserFunc(ctx, orgID, userID)
	}
	return nil, domain.Errorf(domain.ENOTFOUND, "", "membership not found")
}

func (m *mockStore) UpsertEnrollment(ctx context.Context, userID, courseID, paymentID uuid.UUID, accessMonths int) error {
	if m.UpsertEnrollmentFunc != nil {
		return m.UpsertEnrollmentFunc(ctx, userID, courseID, paymentID, accessMonths)
	}
	return errors.New("not implemented")
}

func (m *mockStore) InsertOrganizationSubscription(ctx context.Context, sub *domain.OrganizationSubscription) error {
	if m.InsertOrganizationSubscriptionFunc != nil {
		return m.InsertOrganizationSubscriptionFunc(ctx, sub)
	}
	return errors.New("not implemented")
}

func (m *mockStore) IncrementCouponUse(ctx context.Context, id uuid.UUID) error {
	if m.IncrementCouponUseFunc != nil {
		return m.IncrementCouponUseFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) PaymentByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	if m.PaymentByProviderPaymentIDFunc != nil {
		return m.PaymentByProviderPaymentIDFunc(ctx, providerPaymentID)
	}
	return nil, domain.Errorf(domain.ENOTFOUND, "", "payment for provider id %s not found", providerPaymentID)
}

func (m *mockStore) InsertPayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	if m.InsertPaymentFunc != nil {
		return m.InsertPaymentFunc(ctx, p)
	}
	return p, nil
}

func (m *mockStore) DeletePayment(ctx context.Context, id uuid.UUID) error {
	if m.DeletePaymentFunc != nil {
		return m.DeletePaymentFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) InsertPaymentEvent(ctx context.Context, provider, providerPaymentID string, payload []byte) error {
	if m.InsertPaymentEventFunc != nil {
		return m.InsertPaymentEventFunc(ctx, provider, providerPaymentID, payload)
	}
	return nil
}

func (m *mockStore) TransferByID(ctx context.Context, id uuid.UUID) (*domain.BankTransfer, error) {
	if m.TransferByIDFunc != nil {
		return m.TransferByIDFunc(ctx, id)
	}
	return nil, domain.Errorf(domain.ENOTFOUND, "", "transfer %s not found", id)
}

func (m *mockStore) CourseIDByOrderID(ctx context.Context, orderID string) (uuid.UUID, error) {
	if m.CourseIDByOrderIDFunc != nil {
		return m.CourseIDByOrderIDFunc(ctx, orderID)
	}
	return uuid.Nil, domain.Errorf(domain.ENOTFOUND, "", "checkout session %s not found", orderID)
}

func (m *mockStore) UpdateTransferReceipt(ctx context.Context, id, paymentID uuid.UUID, courseID uuid.UUID, receiptURL string) error {
	if m.UpdateTransferReceiptFunc != nil {
		return m.UpdateTransferReceiptFunc(ctx, id, paymentID, courseID, receiptURL)
	}
	return nil
}

// mockRates implements catalog.RateSource
type mockRates struct {
	rate decimal.Decimal
	err  error
}

func (m *mockRates) ActiveRate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return m.rate, nil
}

// mockCouponStore implements coupon.Store
type mockCouponStore struct {
	coupons map[string]*domain.Coupon
}

func (m *mockCouponStore) CouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	if c, ok := m.coupons[code]; ok {
		return c, nil
	}
	return nil, domain.Errorf(domain.ENOTFOUND, "", "coupon %q not found", code)
}

// mockFiles implements storage.Storage
type mockFiles struct {
	PutFunc  func(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
	PutCalls []string
}

func (m *mockFiles) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	m.PutCalls = append(m.PutCalls, key)
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, content, contentType)
	}
	return "https://files.test/" + key, nil
}

func (m *mockFiles) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *mockFiles) Delete(ctx context.Context, key string) error { return nil }

func (m *mockFiles) URL(key string) string { return "https://files.test/" + key }

func (m *mockFiles) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func testMetrics() *telemetry.BusinessMetrics {
	return telemetry.NewBusinessMetricsWith(prometheus.NewRegistry(), "test")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "buyer@example.com",
		Name:  "Test Buyer",
	}
}

func ctxWithUser(user *domain.User) context.Context {
	return domain.NewContextWithUser(context.Background(), user)
}

func adminMember(orgID, userID uuid.UUID) *domain.OrganizationMember {
	return &domain.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           domain.RoleAdmin,
		Status:         "active",
	}
}

func futureTime(d time.Duration) *time.Time {
	t := time.Now().Add(d)
	return &t
}
