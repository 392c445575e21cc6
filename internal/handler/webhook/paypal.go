package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/service"
	"github.com/obralink/backend/internal/telemetry"
)

// PayPalHandler handles PayPal webhook notifications.
type PayPalHandler struct {
	capture service.CaptureService
	secret  string
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewPayPalHandler creates a PayPal webhook handler.
func NewPayPalHandler(capture service.CaptureService, secret string, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *PayPalHandler {
	return &PayPalHandler{capture: capture, secret: secret, metrics: metrics, logger: logger}
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID string `json:"id"`
		// Capture events nest the order id under supplementary data.
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// orderID picks the checkout order id to capture. Approval events carry
// it as the resource id, capture events under related_ids.
func (e *paypalEvent) orderID() string {
	switch e.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		return e.Resource.ID
	case "PAYMENT.CAPTURE.COMPLETED":
		if id := e.Resource.SupplementaryData.RelatedIDs.OrderID; id != "" {
			return id
		}
		return e.Resource.ID
	}
	return ""
}

// HandleWebhook processes POST /webhooks/paypal?secret=...
func (h *PayPalHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.metrics.WebhookReceived.WithLabelValues(domain.ProviderPayPal).Inc()

	if !secretMatches(r, h.secret) {
		h.metrics.WebhookRejected.WithLabelValues(domain.ProviderPayPal, "secret").Inc()
		h.logger.Warn("paypal webhook rejected, bad secret")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.metrics.WebhookRejected.WithLabelValues(domain.ProviderPayPal, "body").Inc()
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var event paypalEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.metrics.WebhookRejected.WithLabelValues(domain.ProviderPayPal, "payload").Inc()
		h.logger.Warn("paypal webhook payload not parseable", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	orderID := event.orderID()
	if orderID == "" {
		// Other event types are subscribed but not acted on.
		w.WriteHeader(http.StatusOK)
		return
	}

	outcome, err := h.capture.HandleCapture(r.Context(), domain.ProviderPayPal, orderID)
	h.metrics.WebhookLatency.WithLabelValues(domain.ProviderPayPal).Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("paypal webhook capture failed",
			"order_id", orderID,
			"event_type", event.EventType,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("paypal webhook processed",
		"order_id", orderID,
		"event_type", event.EventType,
		"outcome", outcome.Status,
	)
	w.WriteHeader(http.StatusOK)
}
