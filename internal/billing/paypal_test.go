package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/backend/internal/domain"
)

// paypalTestServer fakes the OAuth token endpoint and delegates
// everything else to handler.
func paypalTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		json.NewEncoder(w).Encode(paypalTokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
	})
	mux.HandleFunc("/", handler)
	return httptest.NewServer(mux)
}

func newTestPayPal(baseURL string) *PayPal {
	return NewPayPal(PayPalConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      baseURL,
	})
}

func TestPayPalCreateOrder(t *testing.T) {
	var gotReq paypalOrderRequest
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/checkout/orders", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(paypalOrderResponse{
			ID: "ORDER-1",
			Links: []paypalLink{
				{Rel: "self", Href: "https://paypal.test/orders/ORDER-1"},
				{Rel: "approve", Href: "https://paypal.test/approve/ORDER-1"},
			},
		})
	})
	defer srv.Close()

	pp := newTestPayPal(srv.URL)
	handle, err := pp.CreateOrder(context.Background(), CreateOrderParams{
		Title:       "Obra Premium Plan",
		AmountCents: 4900,
		Currency:    "USD",
		Reference:   `{"u":"x","t":"plan","p":"y"}`,
		SuccessURL:  "https://app.test/capture/paypal",
		CancelURL:   "https://app.test/billing",
	})
	require.NoError(t, err)

	assert.Equal(t, "ORDER-1", handle.ProviderOrderID)
	assert.Equal(t, "https://paypal.test/approve/ORDER-1", handle.RedirectURL)

	assert.Equal(t, "CAPTURE", gotReq.Intent)
	require.Len(t, gotReq.PurchaseUnits, 1)
	assert.Equal(t, "49.00", gotReq.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "USD", gotReq.PurchaseUnits[0].Amount.CurrencyCode)
	assert.Equal(t, `{"u":"x","t":"plan","p":"y"}`, gotReq.PurchaseUnits[0].CustomID)
	assert.Equal(t, "https://app.test/capture/paypal", gotReq.ApplicationContext.ReturnURL)
}

func TestPayPalCaptureOrder(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/checkout/orders/ORDER-1/capture", r.URL.Path)

		json.NewEncoder(w).Encode(paypalOrderResponse{
			ID:     "ORDER-1",
			Status: "COMPLETED",
			PurchaseUnits: []paypalCapturedUnit{{
				Payments: paypalPayments{Captures: []paypalCapture{{
					ID:       "CAP-9",
					Status:   "COMPLETED",
					Amount:   paypalAmount{CurrencyCode: "USD", Value: "49.00"},
					CustomID: `{"u":"x","t":"plan","p":"y"}`,
				}}},
			}},
		})
	})
	defer srv.Close()

	pp := newTestPayPal(srv.URL)
	result, err := pp.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)

	assert.Equal(t, "CAP-9", result.PaymentID)
	assert.True(t, result.Approved)
	assert.Equal(t, int64(4900), result.AmountCents)
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, `{"u":"x","t":"plan","p":"y"}`, result.Reference)
}

func TestPayPalCaptureOrderAlreadyCaptured(t *testing.T) {
	var captureCalls, getCalls int
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			captureCalls++
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`))
		case r.Method == http.MethodGet:
			getCalls++
			require.Equal(t, "/v2/checkout/orders/ORDER-1", r.URL.Path)
			json.NewEncoder(w).Encode(paypalOrderResponse{
				ID:     "ORDER-1",
				Status: "COMPLETED",
				PurchaseUnits: []paypalCapturedUnit{{
					CustomID: "ref-1",
					Payments: paypalPayments{Captures: []paypalCapture{{
						ID:     "CAP-9",
						Status: "COMPLETED",
						Amount: paypalAmount{CurrencyCode: "USD", Value: "10.00"},
					}}},
				}},
			})
		}
	})
	defer srv.Close()

	pp := newTestPayPal(srv.URL)
	result, err := pp.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)

	assert.Equal(t, 1, captureCalls)
	assert.Equal(t, 1, getCalls)
	assert.Equal(t, "CAP-9", result.PaymentID)
	assert.True(t, result.Approved)
	assert.Equal(t, "ref-1", result.Reference, "falls back to the purchase unit custom_id")
}

func TestPayPalCaptureOrderRejected(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"details":[{"issue":"INSTRUMENT_DECLINED"}]}`))
	})
	defer srv.Close()

	pp := newTestPayPal(srv.URL)
	_, err := pp.CaptureOrder(context.Background(), "ORDER-1")
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
}

func TestPayPalTokenReused(t *testing.T) {
	tokenRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		json.NewEncoder(w).Encode(paypalTokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(paypalOrderResponse{
			ID:    "ORDER-1",
			Links: []paypalLink{{Rel: "approve", Href: "https://paypal.test/approve"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	pp := newTestPayPal(srv.URL)
	params := CreateOrderParams{Title: "Course", AmountCents: 100, Currency: "USD"}

	_, err := pp.CreateOrder(context.Background(), params)
	require.NoError(t, err)
	_, err = pp.CreateOrder(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 1, tokenRequests)
}
