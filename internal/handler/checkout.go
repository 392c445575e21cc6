package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/middleware"
	"github.com/obralink/backend/internal/service"
)

// CheckoutHandler exposes checkout creation per provider.
type CheckoutHandler struct {
	checkout service.CheckoutService
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(checkout service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// checkoutRequest is the client body. Any user id a client might send
// is deliberately absent: identity comes from the session.
type checkoutRequest struct {
	ProductType    string `json:"productType"`
	ProductID      string `json:"productId"`
	OrganizationID string `json:"organizationId,omitempty"`
	BillingPeriod  string `json:"billingPeriod,omitempty"`
	Currency       string `json:"currency,omitempty"`
	CouponCode     string `json:"couponCode,omitempty"`
}

type checkoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	OrderID     string `json:"orderId"`
}

type freeEnrollmentResponse struct {
	Error          string `json:"error"`
	Status         int    `json:"status"`
	FreeEnrollment bool   `json:"freeEnrollment"`
	CouponCode     string `json:"couponCode"`
}

// Create handles POST /api/checkout/{provider}.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	var body checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Malformed request body"))
		return
	}

	productID, err := uuid.Parse(body.ProductID)
	if err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "productId must be a UUID"))
		return
	}

	params := service.CreateCheckoutParams{
		Provider:      provider,
		ProductType:   domain.ProductType(body.ProductType),
		ProductID:     productID,
		BillingPeriod: domain.BillingPeriod(body.BillingPeriod),
		Currency:      body.Currency,
		CouponCode:    body.CouponCode,
	}
	if body.OrganizationID != "" {
		orgID, err := uuid.Parse(body.OrganizationID)
		if err != nil {
			ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "organizationId must be a UUID"))
			return
		}
		params.OrganizationID = &orgID
	}

	order, err := h.checkout.CreateCheckout(r.Context(), params)
	if err != nil {
		logger := middleware.GetLogger(r.Context())
		var freeErr *service.FreeEnrollmentError
		if errors.As(err, &freeErr) {
			logger.Info("checkout short-circuited by free coupon", "coupon", freeErr.CouponCode)
			// Not a retryable checkout failure: the client must route
			// the buyer through the free-enrollment flow instead.
			writeJSON(w, http.StatusConflict, freeEnrollmentResponse{
				Error:          "coupon grants free enrollment",
				Status:         http.StatusConflict,
				FreeEnrollment: true,
				CouponCode:     freeErr.CouponCode,
			})
			return
		}
		logger.Error("creating checkout", "provider", provider, "error", err)
		ErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		RedirectURL: order.RedirectURL,
		OrderID:     order.OrderID,
	})
}
