package billing

import "context"

// MockProvider is a configurable test double for Provider.
type MockProvider struct {
	ProviderName     string
	CreateOrderFunc  func(ctx context.Context, params CreateOrderParams) (*CheckoutHandle, error)
	CaptureOrderFunc func(ctx context.Context, token string) (*CaptureResult, error)

	CreateOrderCalls  int
	CaptureOrderCalls int
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutHandle, error) {
	m.CreateOrderCalls++
	return m.CreateOrderFunc(ctx, params)
}

func (m *MockProvider) CaptureOrder(ctx context.Context, token string) (*CaptureResult, error) {
	m.CaptureOrderCalls++
	return m.CaptureOrderFunc(ctx, token)
}
