package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/billing"
	"github.com/obralink/backend/internal/catalog"
	"github.com/obralink/backend/internal/coupon"
	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/metadata"
	"github.com/obralink/backend/internal/telemetry"
)

// CheckoutStore loads catalog products for checkout.
type CheckoutStore interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	PlanByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error)
}

// CheckoutService creates provider checkout orders. No local state is
// written at this stage: an abandoned checkout leaves no residue.
type CheckoutService interface {
	// CreateCheckout builds and submits a provider order for the
	// selected product, returning the redirect URL the buyer is sent
	// to. A free-enrollment coupon returns *FreeEnrollmentError
	// instead of an order.
	CreateCheckout(ctx context.Context, params CreateCheckoutParams) (*CheckoutOrder, error)
}

// CreateCheckoutParams selects a product and payment provider.
// The buyer's identity comes from the session context, never from here.
type CreateCheckoutParams struct {
	Provider       string
	ProductType    domain.ProductType
	ProductID      uuid.UUID
	OrganizationID *uuid.UUID
	BillingPeriod  domain.BillingPeriod
	Currency       string
	CouponCode     string
}

// CheckoutOrder is the provider handle returned to the UI.
type CheckoutOrder struct {
	OrderID     string
	RedirectURL string
}

// CheckoutURLs configures where the provider sends the buyer back and
// where it delivers webhooks.
type CheckoutURLs struct {
	// BaseURL is the public origin of this backend, without a
	// trailing slash.
	BaseURL string

	// WebhookSecret authenticates webhook deliveries via a query
	// parameter embedded in the registered webhook URL.
	WebhookSecret string
}

type checkoutService struct {
	store     CheckoutStore
	pricing   *catalog.Resolver
	coupons   *coupon.Validator
	authz     *Authorizer
	providers map[string]billing.Provider
	codecs    map[string]metadata.Codec
	urls      CheckoutURLs
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
}

// NewCheckoutService creates a CheckoutService. The providers and
// codecs maps are keyed by provider name; each provider must have a
// codec fitting its correlation-field constraints.
func NewCheckoutService(
	store CheckoutStore,
	pricing *catalog.Resolver,
	coupons *coupon.Validator,
	authz *Authorizer,
	providers map[string]billing.Provider,
	codecs map[string]metadata.Codec,
	urls CheckoutURLs,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) CheckoutService {
	return &checkoutService{
		store:     store,
		pricing:   pricing,
		coupons:   coupons,
		authz:     authz,
		providers: providers,
		codecs:    codecs,
		urls:      urls,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *checkoutService) CreateCheckout(ctx context.Context, params CreateCheckoutParams) (*CheckoutOrder, error) {
	actor, err := s.authz.Actor(ctx)
	if err != nil {
		return nil, err
	}

	provider, ok := s.providers[params.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	codec, ok := s.codecs[params.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if !params.ProductType.Valid() {
		return nil, ErrInvalidProductType
	}

	currency := strings.ToUpper(params.Currency)
	if currency == "" {
		currency = "USD"
	}

	product, err := s.resolveProduct(ctx, params)
	if err != nil {
		return nil, err
	}

	unitPrice, err := s.pricing.UnitPrice(ctx, product, params.BillingPeriod, currency)
	if err != nil {
		return nil, err
	}

	intent := &domain.CheckoutIntent{
		UserID:         actor.ID,
		ProductType:    params.ProductType,
		ProductID:      product.ID(),
		Currency:       currency,
		UnitPriceCents: unitPrice,
	}
	if params.ProductType == domain.ProductPlan {
		// Organization scope belongs to plan purchases only. The
		// delimited codec reads a non-empty organization field as a
		// plan purchase, so a stray organization id on a course
		// request must not reach the encoded intent.
		intent.OrganizationID = params.OrganizationID
		intent.BillingPeriod = params.BillingPeriod
	}

	title := product.Title()
	if params.CouponCode != "" {
		app, err := s.coupons.Apply(ctx, params.CouponCode, product.ID(), actor.ID, unitPrice)
		if err != nil {
			return nil, err
		}
		if app.FreeEnrollment {
			return nil, &FreeEnrollmentError{CouponCode: params.CouponCode}
		}
		intent.CouponCode = params.CouponCode
		intent.CouponID = &app.CouponID
		intent.UnitPriceCents = app.FinalPriceCents
		title = title + " (" + app.Descriptor + ")"
	}

	reference, err := codec.Encode(*intent)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	handle, err := provider.CreateOrder(ctx, billing.CreateOrderParams{
		Title:       title,
		AmountCents: intent.UnitPriceCents,
		Currency:    currency,
		PayerEmail:  actor.Email,
		Reference:   reference,
		SuccessURL:  s.urls.BaseURL + "/payments/" + params.Provider + "/capture",
		CancelURL:   s.urls.BaseURL + "/billing",
		WebhookURL:  s.webhookURL(params.Provider),
	})
	s.metrics.ProviderAPILatency.WithLabelValues(params.Provider, "create_order").Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.CheckoutFailed.WithLabelValues(params.Provider, "provider").Inc()
		return nil, err
	}

	s.metrics.CheckoutCreated.WithLabelValues(params.Provider, string(params.ProductType)).Inc()
	s.logger.Info("checkout order created",
		"provider", params.Provider,
		"product_type", params.ProductType,
		"product_id", product.ID(),
		"order_id", handle.ProviderOrderID,
		"amount_cents", intent.UnitPriceCents,
		"currency", currency,
	)

	return &CheckoutOrder{
		OrderID:     handle.ProviderOrderID,
		RedirectURL: handle.RedirectURL,
	}, nil
}

// resolveProduct loads the product from the catalog. Plans additionally
// require an organization, a valid billing period and an administrative
// role held by the session user.
func (s *checkoutService) resolveProduct(ctx context.Context, params CreateCheckoutParams) (domain.ProductRef, error) {
	switch params.ProductType {
	case domain.ProductCourse:
		course, err := s.store.CourseByID(ctx, params.ProductID)
		if err != nil {
			return domain.ProductRef{}, err
		}
		return domain.ProductRef{Type: domain.ProductCourse, Course: course}, nil

	case domain.ProductPlan:
		if params.OrganizationID == nil {
			return domain.ProductRef{}, ErrOrganizationRequired
		}
		if !params.BillingPeriod.Valid() {
			return domain.ProductRef{}, ErrInvalidBillingPeriod
		}
		if err := s.authz.RequireOrganizationAdmin(ctx, *params.OrganizationID); err != nil {
			return domain.ProductRef{}, err
		}
		plan, err := s.store.PlanByID(ctx, params.ProductID)
		if err != nil {
			return domain.ProductRef{}, err
		}
		return domain.ProductRef{Type: domain.ProductPlan, Plan: plan}, nil
	}
	return domain.ProductRef{}, ErrInvalidProductType
}

func (s *checkoutService) webhookURL(provider string) string {
	return s.urls.BaseURL + "/webhooks/" + provider + "?secret=" + url.QueryEscape(s.urls.WebhookSecret)
}
