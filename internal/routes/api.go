package routes

import (
	"github.com/obralink/backend/internal/middleware"
	"github.com/obralink/backend/internal/router"
)

// RegisterAPIRoutes registers the authenticated JSON API. Every route
// here rejects anonymous requests; the handlers read the caller's
// identity from the session, never from request bodies.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	r.Post("/api/checkout/{provider}", deps.CheckoutHandler.Create, middleware.RequireUser)
	r.Post("/api/transfers/receipt", deps.TransferHandler.UploadReceipt, middleware.RequireUser)
	r.Get("/api/payments", deps.PaymentsHandler.List, middleware.RequireUser)
}

// RegisterPaymentRoutes registers the provider return pages. The buyer
// lands here after paying; the capture token comes from the provider's
// redirect query, so no session is required.
func RegisterPaymentRoutes(r *router.Router, deps PaymentDeps) {
	r.Get("/payments/{provider}/capture", deps.CaptureHandler.Redirect)
}
