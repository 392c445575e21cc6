package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// PaymentLister loads a user's payment history.
type PaymentLister interface {
	PaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error)
}

// PaymentsHandler serves the billing screen's payment history.
type PaymentsHandler struct {
	store PaymentLister
}

// NewPaymentsHandler creates a PaymentsHandler.
func NewPaymentsHandler(store PaymentLister) *PaymentsHandler {
	return &PaymentsHandler{store: store}
}

type paymentItem struct {
	ID                string    `json:"id"`
	Provider          string    `json:"provider"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty"`
	ProductType       string    `json:"productType"`
	ProductID         string    `json:"productId"`
	AmountCents       int64     `json:"amountCents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

// List handles GET /api/payments for the session user.
func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := domain.UserFromContext(r.Context())
	if user == nil {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Valid session required"))
		return
	}

	payments, err := h.store.PaymentsByUser(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	items := make([]paymentItem, 0, len(payments))
	for _, p := range payments {
		item := paymentItem{
			ID:          p.ID.String(),
			Provider:    p.Provider,
			ProductType: string(p.ProductType),
			ProductID:   p.ProductID.String(),
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			Status:      string(p.Status),
			CreatedAt:   p.CreatedAt,
		}
		if p.ProviderPaymentID != nil {
			item.ProviderPaymentID = *p.ProviderPaymentID
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{"payments": items})
}
