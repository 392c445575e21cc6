// Package metadata round-trips a checkout intent through the opaque
// correlation field of an external payment provider. Providers impose
// different constraints on that field (length ceilings, restricted
// charsets), so two codecs exist behind one interface and the order
// builder picks the one its provider needs.
package metadata

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// Codec encodes a checkout intent into a provider-safe string and
// decodes it back at capture time.
//
// Decode is deliberately tolerant: a malformed or foreign string yields
// (nil, false) rather than an error, because capture must continue
// gracefully when metadata is absent or partial. A missing coupon
// decodes to an intent with no coupon, not a failure.
type Codec interface {
	Encode(intent domain.CheckoutIntent) (string, error)
	Decode(raw string) (*domain.CheckoutIntent, bool)
}

// Delimited is the pipe-separated positional encoding:
//
//	userId|productId|organizationId|billingPeriod
//
// ASCII, order-significant, no escaping. Organization and billing
// period are empty for course purchases; a non-empty organization
// marks the intent as a plan purchase.
type Delimited struct{}

const delimitedFields = 4

func (Delimited) Encode(intent domain.CheckoutIntent) (string, error) {
	var orgID, period string
	// The organization field doubles as the product type marker on
	// decode, so it is only written for plan purchases.
	if intent.ProductType == domain.ProductPlan {
		if intent.OrganizationID != nil {
			orgID = intent.OrganizationID.String()
		}
		period = string(intent.BillingPeriod)
	}
	fields := []string{
		intent.UserID.String(),
		intent.ProductID.String(),
		orgID,
		period,
	}
	for _, f := range fields {
		if strings.Contains(f, "|") {
			return "", domain.Errorf(domain.EINVALID, "metadata.encode", "metadata field contains separator")
		}
	}
	return strings.Join(fields, "|"), nil
}

func (Delimited) Decode(raw string) (*domain.CheckoutIntent, bool) {
	parts := strings.Split(raw, "|")
	if len(parts) != delimitedFields {
		return nil, false
	}
	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, false
	}
	productID, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, false
	}
	intent := &domain.CheckoutIntent{
		UserID:      userID,
		ProductID:   productID,
		ProductType: domain.ProductCourse,
	}
	if parts[2] != "" {
		orgID, err := uuid.Parse(parts[2])
		if err != nil {
			return nil, false
		}
		intent.OrganizationID = &orgID
		intent.ProductType = domain.ProductPlan
	}
	if parts[3] != "" {
		period := domain.BillingPeriod(parts[3])
		if !period.Valid() {
			return nil, false
		}
		intent.BillingPeriod = period
	}
	return intent, true
}

// compactRecord is the wire shape of the structured encoding. Short
// keys and 22-character base64url ids keep a full plan purchase under
// tight provider field limits.
type compactRecord struct {
	UserID         string `json:"u"`
	ProductType    string `json:"t"`
	ProductID      string `json:"p"`
	OrganizationID string `json:"o,omitempty"`
	BillingPeriod  string `json:"b,omitempty"`
	CouponCode     string `json:"c,omitempty"`
	CouponID       string `json:"i,omitempty"`
}

// Compact serializes the intent as short-keyed JSON with ids encoded
// as base64url of their raw 16 bytes. When the result would exceed
// MaxLen, optional coupon fields are dropped before required ones; if
// the coupon-free form still exceeds the ceiling the request fails
// rather than emit an undecodable payload.
type Compact struct {
	// MaxLen caps the encoded length. Zero means unlimited.
	MaxLen int
}

func (c Compact) Encode(intent domain.CheckoutIntent) (string, error) {
	rec := compactRecord{
		UserID:      compactID(intent.UserID),
		ProductType: string(intent.ProductType),
		ProductID:   compactID(intent.ProductID),
		CouponCode:  intent.CouponCode,
	}
	if intent.OrganizationID != nil {
		rec.OrganizationID = compactID(*intent.OrganizationID)
	}
	if intent.BillingPeriod != "" {
		rec.BillingPeriod = string(intent.BillingPeriod)
	}
	if intent.CouponID != nil {
		rec.CouponID = compactID(*intent.CouponID)
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return "", domain.WrapError(err, domain.EINTERNAL, "metadata.encode", "encoding checkout metadata")
	}
	if c.MaxLen > 0 && len(encoded) > c.MaxLen {
		rec.CouponCode = ""
		rec.CouponID = ""
		encoded, err = json.Marshal(rec)
		if err != nil {
			return "", domain.WrapError(err, domain.EINTERNAL, "metadata.encode", "encoding checkout metadata")
		}
		if len(encoded) > c.MaxLen {
			return "", domain.Errorf(domain.EINVALID, "metadata.encode", "checkout metadata exceeds provider limit of %d characters", c.MaxLen)
		}
	}
	return string(encoded), nil
}

func (c Compact) Decode(raw string) (*domain.CheckoutIntent, bool) {
	var rec compactRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false
	}
	userID, ok := parseCompactID(rec.UserID)
	if !ok {
		return nil, false
	}
	productID, ok := parseCompactID(rec.ProductID)
	if !ok {
		return nil, false
	}
	productType := domain.ProductType(rec.ProductType)
	if !productType.Valid() {
		return nil, false
	}
	intent := &domain.CheckoutIntent{
		UserID:      userID,
		ProductType: productType,
		ProductID:   productID,
		CouponCode:  rec.CouponCode,
	}
	if rec.OrganizationID != "" {
		orgID, ok := parseCompactID(rec.OrganizationID)
		if !ok {
			return nil, false
		}
		intent.OrganizationID = &orgID
	}
	if rec.BillingPeriod != "" {
		period := domain.BillingPeriod(rec.BillingPeriod)
		if !period.Valid() {
			return nil, false
		}
		intent.BillingPeriod = period
	}
	if rec.CouponID != "" {
		couponID, ok := parseCompactID(rec.CouponID)
		if !ok {
			return nil, false
		}
		intent.CouponID = &couponID
	}
	return intent, true
}

func compactID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// parseCompactID accepts the 22-character base64url form and, as a
// legacy fallback, the canonical 36-character hyphenated form that
// older payloads carried.
func parseCompactID(s string) (uuid.UUID, bool) {
	if len(s) == 36 {
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(data) != 16 {
		return uuid.Nil, false
	}
	id, err := uuid.FromBytes(data)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
