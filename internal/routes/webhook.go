package routes

import (
	"github.com/obralink/backend/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
// These routes handle incoming notifications from payment providers.
//
// Note: Webhook routes do NOT have authentication middleware.
// Each webhook handler verifies the shared secret carried in the
// notification URL before acting on the payload.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/mercadopago", deps.MercadoPagoHandler)
	r.Post("/webhooks/paypal", deps.PayPalHandler)
}

// RegisterSystemRoutes registers health and metrics endpoints.
func RegisterSystemRoutes(r *router.Router, deps SystemDeps) {
	r.Get("/healthz", deps.Healthz)
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
