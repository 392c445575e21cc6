package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/billing"
	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/metadata"
	"github.com/obralink/backend/internal/telemetry"
)

// CaptureStore persists payments and their audit trail.
type CaptureStore interface {
	PaymentByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error)
	InsertPayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	InsertPaymentEvent(ctx context.Context, provider, providerPaymentID string, payload []byte) error
}

// CaptureStatus is the terminal state of one capture invocation.
type CaptureStatus string

const (
	// CaptureFulfilled means the payment was recorded and the
	// fulfillment action ran in this invocation.
	CaptureFulfilled CaptureStatus = "fulfilled"

	// CaptureAlreadyProcessed means a payment for this provider id
	// already exists; nothing was done. Duplicate redirect and
	// webhook deliveries land here.
	CaptureAlreadyProcessed CaptureStatus = "already_processed"

	// CaptureNothingToFulfill means the provider payload carried no
	// decodable intent. A later delivery may complete it; this is
	// not an error.
	CaptureNothingToFulfill CaptureStatus = "nothing_to_fulfill"

	// CaptureRejected means the provider reported the payment as not
	// approved. No local state was written.
	CaptureRejected CaptureStatus = "rejected"
)

// CaptureOutcome reports what a capture invocation did.
type CaptureOutcome struct {
	Status  CaptureStatus
	Payment *domain.Payment
}

// CaptureService confirms provider payments and fulfills them exactly
// once. Redirect callbacks and webhooks both funnel into HandleCapture
// and converge on the provider payment id as the idempotency key.
type CaptureService interface {
	HandleCapture(ctx context.Context, provider, token string) (*CaptureOutcome, error)
}

type captureService struct {
	store     CaptureStore
	providers map[string]billing.Provider
	codecs    map[string]metadata.Codec
	fulfiller *Fulfiller
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
}

// NewCaptureService creates a CaptureService. The providers and codecs
// maps must mirror the ones used at checkout creation so references
// decode with the codec that produced them.
func NewCaptureService(
	store CaptureStore,
	providers map[string]billing.Provider,
	codecs map[string]metadata.Codec,
	fulfiller *Fulfiller,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) CaptureService {
	return &captureService{
		store:     store,
		providers: providers,
		codecs:    codecs,
		fulfiller: fulfiller,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleCapture confirms the order with the provider and, when the
// payment is new, records it and runs its fulfillment action.
//
// The insert relies on the unique index over provider payment ids as
// the final arbiter: when two deliveries race past the idempotency
// read, the losing insert fails with a conflict and is treated exactly
// like an already-processed payment. A fulfillment failure after the
// insert deletes the payment row so the next delivery retries from a
// clean state.
func (s *captureService) HandleCapture(ctx context.Context, provider, token string) (*CaptureOutcome, error) {
	prov, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	codec, ok := s.codecs[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	start := time.Now()
	result, err := prov.CaptureOrder(ctx, token)
	s.metrics.ProviderAPILatency.WithLabelValues(provider, "capture_order").Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.CapturesFailed.WithLabelValues(provider, "capture").Inc()
		return nil, err
	}
	if !result.Approved {
		s.logger.Info("capture not approved",
			"provider", provider,
			"payment_id", result.PaymentID,
			"status", result.Status,
		)
		return &CaptureOutcome{Status: CaptureRejected}, nil
	}

	intent, ok := codec.Decode(result.Reference)
	if !ok {
		// Metadata may arrive on a later delivery for this payment;
		// leave no state behind and let that delivery fulfill.
		s.logger.Warn("capture carried no decodable intent",
			"provider", provider,
			"payment_id", result.PaymentID,
		)
		s.metrics.CapturesFailed.WithLabelValues(provider, "metadata").Inc()
		return &CaptureOutcome{Status: CaptureNothingToFulfill}, nil
	}

	existing, err := s.store.PaymentByProviderPaymentID(ctx, result.PaymentID)
	if err == nil {
		s.metrics.CapturesDuplicated.WithLabelValues(provider).Inc()
		return &CaptureOutcome{Status: CaptureAlreadyProcessed, Payment: existing}, nil
	}
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		return nil, err
	}

	if err := s.store.InsertPaymentEvent(ctx, provider, result.PaymentID, result.Raw); err != nil {
		// The audit record is written before any mutation; without it
		// a failed fulfillment is not reconstructable.
		s.metrics.CapturesFailed.WithLabelValues(provider, "insert").Inc()
		return nil, err
	}

	payment := &domain.Payment{
		ID:                uuid.New(),
		Provider:          provider,
		ProviderPaymentID: &result.PaymentID,
		UserID:            intent.UserID,
		OrganizationID:    intent.OrganizationID,
		ProductType:       intent.ProductType,
		ProductID:         intent.ProductID,
		AmountCents:       result.AmountCents,
		Currency:          result.Currency,
		Status:            domain.PaymentCompleted,
	}

	inserted, err := s.store.InsertPayment(ctx, payment)
	if err != nil {
		if domain.ErrorCode(err) == domain.ECONFLICT {
			// Lost the race with a concurrent delivery; the unique
			// index over provider payment ids is the arbiter.
			s.metrics.CapturesDuplicated.WithLabelValues(provider).Inc()
			return &CaptureOutcome{Status: CaptureAlreadyProcessed}, nil
		}
		s.metrics.CapturesFailed.WithLabelValues(provider, "insert").Inc()
		return nil, err
	}

	if err := s.fulfiller.Fulfill(ctx, intent, inserted); err != nil {
		s.metrics.CapturesFailed.WithLabelValues(provider, "fulfill").Inc()
		s.compensate(ctx, provider, inserted)
		return nil, err
	}

	s.metrics.CapturesProcessed.WithLabelValues(provider, string(intent.ProductType)).Inc()
	s.metrics.FulfillmentValue.WithLabelValues(provider, result.Currency).
		Observe(float64(result.AmountCents) / 100)
	s.logger.Info("payment fulfilled",
		"provider", provider,
		"payment_id", result.PaymentID,
		"product_type", intent.ProductType,
		"product_id", intent.ProductID,
		"amount_cents", result.AmountCents,
		"currency", result.Currency,
	)

	return &CaptureOutcome{Status: CaptureFulfilled, Payment: inserted}, nil
}

// compensate removes a payment whose fulfillment failed so the next
// webhook delivery retries from a clean idempotency state. A failed
// delete is reported for manual reconciliation, never retried here,
// because a blind retry risks duplicate fulfillment.
func (s *captureService) compensate(ctx context.Context, provider string, payment *domain.Payment) {
	if err := s.store.DeletePayment(ctx, payment.ID); err != nil {
		s.metrics.ReconciliationNeeded.WithLabelValues(provider).Inc()
		telemetry.CaptureError(err, map[string]interface{}{
			"payment_id":          payment.ID.String(),
			"provider":            provider,
			"provider_payment_id": derefString(payment.ProviderPaymentID),
		})
		s.logger.Error("compensating delete failed, manual reconciliation required",
			"payment_id", payment.ID,
			"provider", provider,
			"error", err,
		)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
