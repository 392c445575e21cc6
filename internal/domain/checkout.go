package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductType distinguishes what a payment buys.
type ProductType string

const (
	// ProductCourse is an individual training course purchase.
	ProductCourse ProductType = "course"

	// ProductPlan is an organization subscription plan purchase.
	ProductPlan ProductType = "plan"
)

// Valid reports whether the product type is a known value.
func (t ProductType) Valid() bool {
	return t == ProductCourse || t == ProductPlan
}

// BillingPeriod is the subscription billing cadence.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingAnnual  BillingPeriod = "annual"
)

// Valid reports whether the billing period is a known value.
func (b BillingPeriod) Valid() bool {
	return b == BillingMonthly || b == BillingAnnual
}

// Months returns the entitlement length for the period.
func (b BillingPeriod) Months() int {
	if b == BillingAnnual {
		return 12
	}
	return 1
}

// Course is a purchasable training course from the catalog.
// Prices are stored in USD cents; conversion to the buyer's currency
// happens at checkout time.
type Course struct {
	ID             uuid.UUID
	Slug           string
	Title          string
	BasePriceCents int64
	AccessMonths   int
}

// SubscriptionPlan is a purchasable organization plan from the catalog.
type SubscriptionPlan struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	MonthlyCents int64
	AnnualCents  int64
}

// PriceCents returns the plan's base USD price for a billing period.
func (p *SubscriptionPlan) PriceCents(period BillingPeriod) int64 {
	if period == BillingAnnual {
		return p.AnnualCents
	}
	return p.MonthlyCents
}

// ProductRef is a tagged union over the two purchasable product kinds.
// Exactly one of Course or Plan is non-nil, matching Type.
// Immutable once loaded for a request; always sourced from the catalog.
type ProductRef struct {
	Type   ProductType
	Course *Course
	Plan   *SubscriptionPlan
}

// ID returns the catalog identifier of the referenced product.
func (r ProductRef) ID() uuid.UUID {
	switch r.Type {
	case ProductCourse:
		if r.Course != nil {
			return r.Course.ID
		}
	case ProductPlan:
		if r.Plan != nil {
			return r.Plan.ID
		}
	}
	return uuid.Nil
}

// Title returns the display name used for provider line items.
func (r ProductRef) Title() string {
	switch r.Type {
	case ProductCourse:
		if r.Course != nil {
			return r.Course.Title
		}
	case ProductPlan:
		if r.Plan != nil {
			return r.Plan.Name
		}
	}
	return ""
}

// CheckoutIntent is the fulfillment-intent record carried through an
// external provider as opaque metadata. It is never persisted as its own
// entity: it is constructed per request, encoded into the provider's
// correlation field, and reconstructed from it at capture time.
//
// UserID is always derived from the authenticated session.
type CheckoutIntent struct {
	UserID         uuid.UUID
	ProductType    ProductType
	ProductID      uuid.UUID
	OrganizationID *uuid.UUID
	BillingPeriod  BillingPeriod
	CouponCode     string
	CouponID       *uuid.UUID
	Currency       string
	UnitPriceCents int64
}

// PaymentStatus tracks a payment's lifecycle. A completed payment is
// never reopened.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRejected  PaymentStatus = "rejected"
)

// Payment provider identifiers.
const (
	ProviderMercadoPago  = "mercadopago"
	ProviderPayPal       = "paypal"
	ProviderBankTransfer = "bank_transfer"
)

// Payment is the durable record of a completed or pending transaction.
//
// ProviderPaymentID is the idempotency key: at most one Payment may exist
// per non-null provider payment id, enforced by a partial unique index.
// It is null only for manual transfers that have not been captured yet.
type Payment struct {
	ID                uuid.UUID
	Provider          string
	ProviderPaymentID *string
	UserID            uuid.UUID
	OrganizationID    *uuid.UUID
	ProductType       ProductType
	ProductID         uuid.UUID
	AmountCents       int64
	Currency          string
	Status            PaymentStatus
	CreatedAt         time.Time
}

// TransferStatus tracks a bank transfer's review lifecycle.
type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferInReview TransferStatus = "in_review"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

// BankTransfer is a manual (offline) payment awaiting a human-uploaded
// receipt and review. CourseID may be null on legacy rows; it is then
// recovered through the originating checkout session before the receipt
// flow may proceed.
type BankTransfer struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	OrderID     *string
	CourseID    *uuid.UUID
	AmountCents int64
	Currency    string
	Status      TransferStatus
	PaymentID   *uuid.UUID
	ReceiptURL  *string
	CreatedAt   time.Time
}

// OrganizationSubscription is an active plan purchased for an
// organization.
type OrganizationSubscription struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	PlanID           uuid.UUID
	BillingPeriod    BillingPeriod
	PaymentID        uuid.UUID
	AmountCents      int64
	Currency         string
	Status           string
	CurrentPeriodEnd time.Time
	CreatedAt        time.Time
}

// PaymentEvent is the audit record of a raw provider payload, written
// before fulfillment so failed captures remain reconstructable.
type PaymentEvent struct {
	ID                uuid.UUID
	Provider          string
	ProviderPaymentID string
	Payload           []byte
	ReceivedAt        time.Time
}

// OrganizationRole is a member's role within an organization.
type OrganizationRole string

const (
	RoleOwner  OrganizationRole = "owner"
	RoleAdmin  OrganizationRole = "admin"
	RoleMember OrganizationRole = "member"
)

// IsAdministrative reports whether the role may purchase plan upgrades
// for the organization.
func (r OrganizationRole) IsAdministrative() bool {
	return r == RoleOwner || r == RoleAdmin
}

// OrganizationMember is a user's membership record in an organization.
type OrganizationMember struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           OrganizationRole
	Status         string
}
