package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/obralink/backend/internal/domain"
)

const mercadoPagoDefaultBaseURL = "https://api.mercadopago.com"

// MercadoPagoConfig holds credentials and endpoints for the wallet
// provider client.
type MercadoPagoConfig struct {
	AccessToken string
	// BaseURL overrides the production API host, mainly for tests.
	BaseURL string
	// HTTPClient overrides the default client. Nil gets a 15s timeout.
	HTTPClient *http.Client
}

// MercadoPago implements Provider against the MercadoPago checkout
// preferences API.
type MercadoPago struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

// NewMercadoPago creates a MercadoPago provider client.
func NewMercadoPago(cfg MercadoPagoConfig) *MercadoPago {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = mercadoPagoDefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &MercadoPago{
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
		client:      client,
	}
}

func (m *MercadoPago) Name() string { return domain.ProviderMercadoPago }

type mpPreferenceRequest struct {
	Items             []mpItem   `json:"items"`
	Payer             mpPayer    `json:"payer"`
	BackURLs          mpBackURLs `json:"back_urls"`
	AutoReturn        string     `json:"auto_return"`
	NotificationURL   string     `json:"notification_url"`
	ExternalReference string     `json:"external_reference"`
}

type mpItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type mpPayer struct {
	Email string `json:"email"`
}

type mpBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type mpPreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// mpPayment is the narrow slice of GET /v1/payments/{id} the capture
// flow needs. Absent fields decode to their zero values.
type mpPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount json.Number `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference string      `json:"external_reference"`
}

func (m *MercadoPago) CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutHandle, error) {
	reqBody := mpPreferenceRequest{
		Items: []mpItem{{
			Title:      params.Title,
			Quantity:   1,
			UnitPrice:  json.Number(CentsToAmount(params.AmountCents)),
			CurrencyID: params.Currency,
		}},
		Payer: mpPayer{Email: params.PayerEmail},
		BackURLs: mpBackURLs{
			Success: params.SuccessURL,
			Failure: params.CancelURL,
			Pending: params.CancelURL,
		},
		AutoReturn:        "approved",
		NotificationURL:   params.WebhookURL,
		ExternalReference: params.Reference,
	}

	var resp mpPreferenceResponse
	if _, err := m.do(ctx, http.MethodPost, "/checkout/preferences", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.InitPoint == "" {
		return nil, domain.Errorf(domain.EPAYMENT, "mercadopago.create_order", "mercadopago returned an incomplete preference")
	}
	return &CheckoutHandle{
		ProviderOrderID: resp.ID,
		RedirectURL:     resp.InitPoint,
	}, nil
}

// CaptureOrder looks up the payment the redirect or webhook referenced.
// MercadoPago settles payments server-side, so capture here is a status
// read rather than a confirmation call.
func (m *MercadoPago) CaptureOrder(ctx context.Context, token string) (*CaptureResult, error) {
	if token == "" {
		return nil, domain.Errorf(domain.EINVALID, "mercadopago.capture_order", "missing payment identifier")
	}

	var payment mpPayment
	raw, err := m.do(ctx, http.MethodGet, "/v1/payments/"+token, nil, &payment)
	if err != nil {
		return nil, err
	}

	var amountCents int64
	if payment.TransactionAmount != "" {
		amountCents, err = AmountToCents(payment.TransactionAmount.String())
		if err != nil {
			return nil, domain.WrapError(err, domain.EPAYMENT, "mercadopago.capture_order", "mercadopago returned an unparseable amount")
		}
	}

	return &CaptureResult{
		PaymentID:   payment.ID.String(),
		Approved:    payment.Status == "approved",
		Status:      payment.Status,
		AmountCents: amountCents,
		Currency:    payment.CurrencyID,
		Reference:   payment.ExternalReference,
		Raw:         raw,
	}, nil
}

func (m *MercadoPago) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "mercadopago.request", "encoding mercadopago request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "mercadopago.request", "building mercadopago request")
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, wrapProviderErr(domain.ProviderMercadoPago, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, wrapProviderErr(domain.ProviderMercadoPago, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rejection(domain.ProviderMercadoPago, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, "mercadopago.request", fmt.Sprintf("decoding mercadopago %s response", path))
	}
	return respBody, nil
}
