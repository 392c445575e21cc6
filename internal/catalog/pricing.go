// Package catalog resolves products and prices from the course/plan
// catalog. Prices are stored in USD cents; the resolver converts to
// the buyer's currency through configured exchange rates.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/obralink/backend/internal/domain"
)

// RateSource looks up the active exchange rate from a base currency to
// a target currency. A missing rate is an ENOTFOUND error.
type RateSource interface {
	ActiveRate(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// Resolver computes the unit price for a product in a target currency.
// It has no side effects.
type Resolver struct {
	rates RateSource
}

// NewResolver creates a pricing resolver backed by the given rates.
func NewResolver(rates RateSource) *Resolver {
	return &Resolver{rates: rates}
}

// UnitPrice resolves the price of product in currency, in cents.
//
// The base USD price must be positive; a zero or negative catalog
// price is a pricing failure, never a free checkout. A non-USD
// currency with no active rate fails the same way.
func (r *Resolver) UnitPrice(ctx context.Context, product domain.ProductRef, period domain.BillingPeriod, currency string) (int64, error) {
	var baseCents int64
	switch product.Type {
	case domain.ProductCourse:
		if product.Course == nil {
			return 0, domain.Errorf(domain.EPRICING, "pricing.unit_price", "course reference is not loaded")
		}
		baseCents = product.Course.BasePriceCents
	case domain.ProductPlan:
		if product.Plan == nil {
			return 0, domain.Errorf(domain.EPRICING, "pricing.unit_price", "plan reference is not loaded")
		}
		if !period.Valid() {
			return 0, domain.Errorf(domain.EINVALID, "pricing.unit_price", "invalid billing period %q", period)
		}
		baseCents = product.Plan.PriceCents(period)
	default:
		return 0, domain.Errorf(domain.EPRICING, "pricing.unit_price", "unknown product type %q", product.Type)
	}

	if baseCents <= 0 {
		return 0, domain.Errorf(domain.EPRICING, "pricing.unit_price", "product %s has no valid price", product.ID())
	}

	currency = strings.ToUpper(currency)
	if currency == "" || currency == "USD" {
		return baseCents, nil
	}

	rate, err := r.rates.ActiveRate(ctx, "USD", currency)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return 0, domain.Errorf(domain.EPRICING, "pricing.unit_price", "no active exchange rate from USD to %s", currency)
		}
		return 0, domain.WrapError(err, domain.EINTERNAL, "pricing.unit_price", fmt.Sprintf("looking up USD to %s rate", currency))
	}

	converted := decimal.NewFromInt(baseCents).Mul(rate).Round(0).IntPart()
	if converted <= 0 {
		return 0, domain.Errorf(domain.EPRICING, "pricing.unit_price", "conversion to %s produced a non-positive price", currency)
	}
	return converted, nil
}
