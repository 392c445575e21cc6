package routes

import (
	"net/http"

	"github.com/obralink/backend/internal/handler"
)

// APIDeps contains dependencies for the authenticated JSON API routes.
type APIDeps struct {
	CheckoutHandler *handler.CheckoutHandler
	TransferHandler *handler.TransferHandler
	PaymentsHandler *handler.PaymentsHandler
}

// PaymentDeps contains dependencies for the provider redirect routes.
// These are hit by the buyer's browser coming back from the provider,
// so they carry no session requirement.
type PaymentDeps struct {
	CaptureHandler *handler.CaptureHandler
}

// WebhookDeps contains dependencies for webhook routes.
type WebhookDeps struct {
	MercadoPagoHandler http.HandlerFunc
	PayPalHandler      http.HandlerFunc
}

// SystemDeps contains dependencies for health and metrics endpoints.
type SystemDeps struct {
	Healthz        http.HandlerFunc
	MetricsHandler http.Handler
}
