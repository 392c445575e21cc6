package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/backend/internal/domain"
)

type mockRateSource struct {
	rates map[string]decimal.Decimal
}

func (m *mockRateSource) ActiveRate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	rate, ok := m.rates[base+"/"+target]
	if !ok {
		return decimal.Zero, domain.Errorf(domain.ENOTFOUND, "", "no active rate from %s to %s", base, target)
	}
	return rate, nil
}

func courseRef(priceCents int64) domain.ProductRef {
	return domain.ProductRef{
		Type: domain.ProductCourse,
		Course: &domain.Course{
			ID:             uuid.New(),
			Slug:           "work-site-safety",
			Title:          "Work Site Safety",
			BasePriceCents: priceCents,
		},
	}
}

func planRef(monthlyCents, annualCents int64) domain.ProductRef {
	return domain.ProductRef{
		Type: domain.ProductPlan,
		Plan: &domain.SubscriptionPlan{
			ID:           uuid.New(),
			Slug:         "premium",
			Name:         "Premium",
			MonthlyCents: monthlyCents,
			AnnualCents:  annualCents,
		},
	}
}

func TestUnitPriceUSD(t *testing.T) {
	resolver := NewResolver(&mockRateSource{})

	price, err := resolver.UnitPrice(context.Background(), courseRef(10000), "", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), price)
}

func TestUnitPriceConvertsThroughActiveRate(t *testing.T) {
	// $100 course at USD->ARS = 1000 resolves to 100000 ARS.
	resolver := NewResolver(&mockRateSource{rates: map[string]decimal.Decimal{
		"USD/ARS": decimal.NewFromInt(1000),
	}})

	price, err := resolver.UnitPrice(context.Background(), courseRef(10000), "", "ARS")
	require.NoError(t, err)
	assert.Equal(t, int64(10000000), price)
}

func TestUnitPriceFractionalRateRounds(t *testing.T) {
	resolver := NewResolver(&mockRateSource{rates: map[string]decimal.Decimal{
		"USD/BRL": decimal.RequireFromString("5.4321"),
	}})

	price, err := resolver.UnitPrice(context.Background(), courseRef(9999), "", "BRL")
	require.NoError(t, err)
	assert.Equal(t, int64(54316), price)
}

func TestUnitPricePlanBillingPeriods(t *testing.T) {
	resolver := NewResolver(&mockRateSource{})
	ref := planRef(4900, 49900)

	tests := []struct {
		name   string
		period domain.BillingPeriod
		want   int64
	}{
		{"monthly", domain.BillingMonthly, 4900},
		{"annual", domain.BillingAnnual, 49900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := resolver.UnitPrice(context.Background(), ref, tt.period, "USD")
			require.NoError(t, err)
			assert.Equal(t, tt.want, price)
		})
	}
}

func TestUnitPriceFailures(t *testing.T) {
	resolver := NewResolver(&mockRateSource{rates: map[string]decimal.Decimal{
		"USD/ARS": decimal.NewFromInt(1000),
	}})

	tests := []struct {
		name     string
		product  domain.ProductRef
		period   domain.BillingPeriod
		currency string
		wantCode string
	}{
		{"zero base price", courseRef(0), "", "USD", domain.EPRICING},
		{"negative base price", courseRef(-500), "", "USD", domain.EPRICING},
		{"missing exchange rate", courseRef(10000), "", "CLP", domain.EPRICING},
		{"plan without period", planRef(4900, 49900), "", "USD", domain.EINVALID},
		{"unloaded course", domain.ProductRef{Type: domain.ProductCourse}, "", "USD", domain.EPRICING},
		{"unknown product type", domain.ProductRef{Type: "bundle"}, "", "USD", domain.EPRICING},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.UnitPrice(context.Background(), tt.product, tt.period, tt.currency)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}
