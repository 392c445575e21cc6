// Package billing abstracts the external payment providers behind a
// single redirect-checkout interface. Implementations exist for the
// MercadoPago-style wallet provider and PayPal; handlers and services
// depend only on Provider so the capture flow stays provider-agnostic.
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider defines the redirect-checkout contract every payment
// provider implements.
type Provider interface {
	// Name returns the stable provider identifier used on Payment rows
	// (e.g. "mercadopago", "paypal").
	Name() string

	// CreateOrder creates a checkout order/preference with the provider
	// and returns the handle the user is redirected to. No local state
	// is written; an abandoned checkout leaves no residue.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutHandle, error)

	// CaptureOrder confirms a completed order using the token the
	// provider passed back on redirect or webhook, and returns the
	// settled payment details including the opaque reference carrying
	// the checkout intent.
	CaptureOrder(ctx context.Context, token string) (*CaptureResult, error)
}

// CreateOrderParams contains everything a provider needs to build its
// checkout payload.
type CreateOrderParams struct {
	// Title is the line-item description shown on the provider's
	// checkout page.
	Title string

	// AmountCents is the amount in the smallest currency unit.
	AmountCents int64

	// Currency code (ISO 4217 uppercase), e.g. "USD", "ARS".
	Currency string

	// PayerEmail prefills the payer's contact on the checkout page.
	PayerEmail string

	// Reference is the encoded checkout intent, stored in the
	// provider's opaque correlation field and returned verbatim at
	// capture time.
	Reference string

	// SuccessURL and CancelURL are the browser redirect targets after
	// the provider-hosted checkout completes or is abandoned.
	SuccessURL string
	CancelURL  string

	// WebhookURL receives asynchronous payment notifications. It
	// carries a shared-secret query parameter for authenticity.
	WebhookURL string
}

// CheckoutHandle is the result of a successful order creation.
type CheckoutHandle struct {
	// ProviderOrderID is the provider-assigned order/preference id.
	ProviderOrderID string

	// RedirectURL is where the user's browser is sent to pay.
	RedirectURL string
}

// CaptureResult is the settled payment as reported by the provider.
type CaptureResult struct {
	// PaymentID is the provider's payment identifier, used as the
	// idempotency key for fulfillment.
	PaymentID string

	// Approved reports whether the provider settled the payment.
	// A false value is a terminal rejection, not an error.
	Approved bool

	// Status is the provider's raw status string, kept for audit logs.
	Status string

	AmountCents int64
	Currency    string

	// Reference is the opaque correlation field round-tripped from
	// CreateOrderParams.Reference. Empty when the provider did not
	// carry it (legacy or partial payloads).
	Reference string

	// Raw is the provider's response body as received, kept for the
	// audit log.
	Raw []byte
}

// CentsToAmount formats an amount in cents as the decimal string
// providers expect, e.g. 10050 -> "100.50".
func CentsToAmount(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// AmountToCents parses a provider decimal amount string into cents.
func AmountToCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
