// Package webhook receives asynchronous payment notifications from the
// external providers. Deliveries are authenticated by a shared secret
// embedded in the registered webhook URL and funnel into the same
// capture handler the browser redirect uses, so both paths converge on
// the provider payment id as the idempotency key.
package webhook

import (
	"crypto/subtle"
	"net/http"
)

// secretMatches compares the delivery's ?secret= parameter against the
// configured shared secret in constant time.
func secretMatches(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	got := r.URL.Query().Get("secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

// maxWebhookBytes bounds provider payloads.
const maxWebhookBytes = 1 << 20
