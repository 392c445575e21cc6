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

// MercadoPagoHandler handles MercadoPago webhook notifications.
type MercadoPagoHandler struct {
	capture service.CaptureService
	secret  string
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewMercadoPagoHandler creates a MercadoPago webhook handler.
func NewMercadoPagoHandler(capture service.CaptureService, secret string, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *MercadoPagoHandler {
	return &MercadoPagoHandler{capture: capture, secret: secret, metrics: metrics, logger: logger}
}

// mpEvent is the notification envelope. Only payment events carry a
// payment id to act on; other topics are acknowledged and dropped.
type mpEvent struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandleWebhook processes POST /webhooks/mercadopago?secret=...
//
// Returns 200 for everything the handler consumed, including
// duplicates and events it can not act on, so the provider stops
// redelivering. Only transient internal failures return 5xx to request
// a retry.
func (h *MercadoPagoHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.metrics.WebhookReceived.WithLabelValues(domain.ProviderMercadoPago).Inc()

	if !secretMatches(r, h.secret) {
		h.metrics.WebhookRejected.WithLabelValues(domain.ProviderMercadoPago, "secret").Inc()
		h.logger.Warn("mercadopago webhook rejected, bad secret")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.metrics.WebhookRejected.WithLabelValues(domain.ProviderMercadoPago, "body").Inc()
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var event mpEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.metrics.WebhookRejected.WithLabelValues(domain.ProviderMercadoPago, "payload").Inc()
		h.logger.Warn("mercadopago webhook payload not parseable", "error", err)
		// Not retryable; acknowledge so the provider stops resending.
		w.WriteHeader(http.StatusOK)
		return
	}

	paymentID := event.Data.ID.String()
	if event.Type != "payment" || paymentID == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	outcome, err := h.capture.HandleCapture(r.Context(), domain.ProviderMercadoPago, paymentID)
	h.metrics.WebhookLatency.WithLabelValues(domain.ProviderMercadoPago).Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("mercadopago webhook capture failed",
			"payment_id", paymentID,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("mercadopago webhook processed",
		"payment_id", paymentID,
		"outcome", outcome.Status,
	)
	w.WriteHeader(http.StatusOK)
}
