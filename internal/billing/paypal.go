package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/obralink/backend/internal/domain"
)

const paypalDefaultBaseURL = "https://api-m.paypal.com"

// PayPalConfig holds credentials and endpoints for the PayPal client.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	// BaseURL overrides the production API host. Use the sandbox host
	// or an httptest server in tests.
	BaseURL string
	// HTTPClient overrides the default client. Nil gets a 15s timeout.
	HTTPClient *http.Client
}

// PayPal implements Provider against the PayPal Orders v2 API. Access
// tokens are fetched via the client-credentials grant and cached until
// shortly before expiry.
type PayPal struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPal creates a PayPal provider client.
func NewPayPal(cfg PayPalConfig) *PayPal {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = paypalDefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PayPal{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
		client:       client,
	}
}

func (p *PayPal) Name() string { return domain.ProviderPayPal }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type paypalOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext paypalAppContext     `json:"application_context"`
}

type paypalPurchaseUnit struct {
	Description string       `json:"description"`
	CustomID    string       `json:"custom_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalAppContext struct {
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	UserAction string `json:"user_action"`
}

type paypalOrderResponse struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Links         []paypalLink         `json:"links"`
	PurchaseUnits []paypalCapturedUnit `json:"purchase_units"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalCapturedUnit struct {
	CustomID string         `json:"custom_id"`
	Payments paypalPayments `json:"payments"`
}

type paypalPayments struct {
	Captures []paypalCapture `json:"captures"`
}

type paypalCapture struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Amount   paypalAmount `json:"amount"`
	CustomID string       `json:"custom_id"`
}

func (p *PayPal) CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutHandle, error) {
	reqBody := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			Description: params.Title,
			CustomID:    params.Reference,
			Amount: paypalAmount{
				CurrencyCode: params.Currency,
				Value:        CentsToAmount(params.AmountCents),
			},
		}},
		ApplicationContext: paypalAppContext{
			ReturnURL:  params.SuccessURL,
			CancelURL:  params.CancelURL,
			UserAction: "PAY_NOW",
		},
	}

	var resp paypalOrderResponse
	if _, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", reqBody, &resp); err != nil {
		return nil, err
	}

	var approveURL string
	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			approveURL = link.Href
			break
		}
	}
	if resp.ID == "" || approveURL == "" {
		return nil, domain.Errorf(domain.EPAYMENT, "paypal.create_order", "paypal returned an order without an approval link")
	}
	return &CheckoutHandle{
		ProviderOrderID: resp.ID,
		RedirectURL:     approveURL,
	}, nil
}

// CaptureOrder captures an approved order. When the order was already
// captured by the concurrent redirect/webhook path, PayPal answers 422;
// the existing capture is then read back so both paths converge on the
// same result and the idempotency check downstream.
func (p *PayPal) CaptureOrder(ctx context.Context, token string) (*CaptureResult, error) {
	if token == "" {
		return nil, domain.Errorf(domain.EINVALID, "paypal.capture_order", "missing order token")
	}

	var resp paypalOrderResponse
	raw, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders/"+token+"/capture", struct{}{}, &resp)
	if err != nil {
		if !isAlreadyCaptured(err) {
			return nil, err
		}
		if raw, err = p.do(ctx, http.MethodGet, "/v2/checkout/orders/"+token, nil, &resp); err != nil {
			return nil, err
		}
	}
	return captureResultFromOrder(&resp, raw)
}

func captureResultFromOrder(resp *paypalOrderResponse, raw []byte) (*CaptureResult, error) {
	if len(resp.PurchaseUnits) == 0 || len(resp.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, domain.Errorf(domain.EPAYMENT, "paypal.capture_order", "paypal order %s has no capture", resp.ID)
	}
	unit := resp.PurchaseUnits[0]
	capture := unit.Payments.Captures[0]

	amountCents, err := AmountToCents(capture.Amount.Value)
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, "paypal.capture_order", "paypal returned an unparseable amount")
	}

	reference := capture.CustomID
	if reference == "" {
		reference = unit.CustomID
	}
	return &CaptureResult{
		PaymentID:   capture.ID,
		Approved:    capture.Status == "COMPLETED",
		Status:      capture.Status,
		AmountCents: amountCents,
		Currency:    capture.Amount.CurrencyCode,
		Reference:   reference,
		Raw:         raw,
	}, nil
}

func isAlreadyCaptured(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr) &&
		provErr.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(provErr.Body, "ORDER_ALREADY_CAPTURED")
}

// token returns a cached OAuth access token, refreshing it via the
// client-credentials grant when missing or near expiry.
func (p *PayPal) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.WrapError(err, domain.EINTERNAL, "paypal.token", "building paypal token request")
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", wrapProviderErr(domain.ProviderPayPal, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", wrapProviderErr(domain.ProviderPayPal, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", rejection(domain.ProviderPayPal, resp.StatusCode, body)
	}

	var tok paypalTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", domain.WrapError(err, domain.EPAYMENT, "paypal.token", "decoding paypal token response")
	}
	if tok.AccessToken == "" {
		return "", domain.Errorf(domain.EPAYMENT, "paypal.token", "paypal returned an empty access token")
	}

	p.accessToken = tok.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return p.accessToken, nil
}

func (p *PayPal) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	accessToken, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "paypal.request", "encoding paypal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "paypal.request", "building paypal request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, wrapProviderErr(domain.ProviderPayPal, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, wrapProviderErr(domain.ProviderPayPal, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rejection(domain.ProviderPayPal, resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, domain.WrapError(err, domain.EPAYMENT, "paypal.request", fmt.Sprintf("decoding paypal %s response", path))
		}
	}
	return respBody, nil
}
