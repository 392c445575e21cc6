package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level
// observability of the checkout and fulfillment flows.
type BusinessMetrics struct {
	// Checkout funnel
	CheckoutCreated *prometheus.CounterVec
	CheckoutFailed  *prometheus.CounterVec

	// Capture & fulfillment
	CapturesProcessed  *prometheus.CounterVec
	CapturesDuplicated *prometheus.CounterVec
	CapturesFailed     *prometheus.CounterVec
	FulfillmentValue   *prometheus.HistogramVec

	// Compensating rollbacks that themselves failed and need manual
	// reconciliation.
	ReconciliationNeeded *prometheus.CounterVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookRejected *prometheus.CounterVec
	WebhookLatency  *prometheus.HistogramVec

	// Manual transfers
	ReceiptUploads       *prometheus.CounterVec
	ReceiptUploadsFailed *prometheus.CounterVec

	// External API performance
	ProviderAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates business metrics registered against the
// default prometheus registry.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewBusinessMetricsWith creates business metrics registered against
// the given registerer. Tests pass a fresh registry to avoid duplicate
// registration.
func NewBusinessMetricsWith(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "obralink"
	}

	subsystem := "payments"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		CheckoutCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_created_total",
				Help:      "Total provider checkout orders created",
			},
			[]string{"provider", "product_type"},
		),
		CheckoutFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_failed_total",
				Help:      "Total checkout creations that failed",
			},
			[]string{"provider", "reason"},
		),
		CapturesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "captures_processed_total",
				Help:      "Total captures that recorded a payment and fulfilled",
			},
			[]string{"provider", "product_type"},
		),
		CapturesDuplicated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "captures_duplicated_total",
				Help:      "Total captures resolved as idempotent no-ops",
			},
			[]string{"provider"},
		),
		CapturesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "captures_failed_total",
				Help:      "Total captures that failed before or during fulfillment",
			},
			[]string{"provider", "stage"}, // stage: capture, metadata, insert, fulfill
		),
		FulfillmentValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fulfillment_value_cents",
				Help:      "Value of fulfilled payments in cents",
				Buckets:   prometheus.ExponentialBuckets(1000, 10, 6),
			},
			[]string{"provider", "currency"},
		),
		ReconciliationNeeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reconciliation_needed_total",
				Help:      "Compensating deletes that failed and require manual review",
			},
			[]string{"provider"},
		),
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Total webhook deliveries received",
			},
			[]string{"provider"},
		),
		WebhookRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_rejected_total",
				Help:      "Total webhook deliveries rejected (bad secret or payload)",
			},
			[]string{"provider", "reason"},
		),
		WebhookLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Webhook processing duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ReceiptUploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "receipt_uploads_total",
				Help:      "Total bank transfer receipts uploaded",
			},
			[]string{},
		),
		ReceiptUploadsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "receipt_uploads_failed_total",
				Help:      "Total receipt uploads that failed",
			},
			[]string{"reason"},
		),
		ProviderAPILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_api_duration_seconds",
				Help:      "Latency of external provider API calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
	}
}
