package billing

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/obralink/backend/internal/domain"
)

// ProviderError carries the provider's rejection verbatim so handlers
// can surface the status and body where safe.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// wrapProviderErr classifies a failed provider call. Timeouts and
// connection failures become EUNAVAILABLE so callers can distinguish
// "provider down" from "provider said no".
func wrapProviderErr(provider string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapError(err, domain.EUNAVAILABLE, provider+".request", fmt.Sprintf("%s did not respond in time", provider))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(err, domain.EUNAVAILABLE, provider+".request", fmt.Sprintf("%s did not respond in time", provider))
	}
	return domain.WrapError(err, domain.EUNAVAILABLE, provider+".request", fmt.Sprintf("%s is unreachable", provider))
}

// rejection wraps a non-2xx provider response as an EPAYMENT error
// carrying the raw status and body.
func rejection(provider string, status int, body []byte) error {
	return domain.WrapError(
		&ProviderError{Provider: provider, StatusCode: status, Body: string(body)},
		domain.EPAYMENT,
		provider+".request",
		fmt.Sprintf("%s rejected the request", provider),
	)
}
