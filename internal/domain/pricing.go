package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is a configured conversion rate from a base currency to
// a target currency. Only active rates participate in pricing.
type ExchangeRate struct {
	ID        uuid.UUID
	Base      string
	Target    string
	Rate      decimal.Decimal
	Active    bool
	UpdatedAt time.Time
}

// Coupon is a discount code configured in the catalog. A coupon either
// reduces the price by a percentage or, when FreeEnrollment is set,
// grants the product outright and must bypass paid checkout entirely.
type Coupon struct {
	ID              uuid.UUID
	Code            string
	DiscountPercent int64
	// CourseID scopes the coupon to a single course. Nil means any
	// product.
	CourseID *uuid.UUID
	// AllowedUserID restricts the coupon to one user. Nil means anyone.
	AllowedUserID  *uuid.UUID
	MaxUses        int
	UsedCount      int
	ExpiresAt      *time.Time
	Active         bool
	FreeEnrollment bool
}
