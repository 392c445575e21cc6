package service

import (
	"github.com/obralink/backend/internal/domain"
)

// Session/authorization errors
var (
	ErrSessionRequired           = domain.Errorf(domain.EUNAUTHORIZED, "", "Valid session required")
	ErrOrganizationAdminRequired = domain.Errorf(domain.EFORBIDDEN, "", "Administrative role in the organization required")
	ErrNotOrganizationMember     = domain.Errorf(domain.EFORBIDDEN, "", "Not a member of this organization")
)

// Checkout validation errors - use domain.EINVALID
var (
	ErrInvalidProductType   = domain.Errorf(domain.EINVALID, "", "Unknown product type")
	ErrInvalidBillingPeriod = domain.Errorf(domain.EINVALID, "", "Billing period must be monthly or annual")
	ErrOrganizationRequired = domain.Errorf(domain.EINVALID, "", "Plan purchases require an organization")
	ErrUnknownProvider      = domain.Errorf(domain.EINVALID, "", "Unknown payment provider")
)

// Bank transfer errors
var (
	ErrTransferNotFound        = domain.Errorf(domain.ENOTFOUND, "", "Transfer not found")
	ErrTransferNotPending      = domain.Errorf(domain.ECONFLICT, "", "Transfer is no longer pending")
	ErrMissingProductReference = domain.Errorf(domain.EINVALID, "", "Transfer has no resolvable course")
	ErrUnsupportedReceiptType  = domain.Errorf(domain.EINVALID, "", "Receipt must be a PDF, JPG, JPEG or PNG file")
	ErrEmptyReceipt            = domain.Errorf(domain.EINVALID, "", "Receipt file is empty")
)

// FreeEnrollmentError signals a coupon configured for 100% free access.
// It is a distinct terminal outcome, not a zero-price checkout: the
// caller must redirect to the free-enrollment flow instead of creating
// a paid order.
type FreeEnrollmentError struct {
	CouponCode string
}

func (e *FreeEnrollmentError) Error() string {
	return "coupon " + e.CouponCode + " grants free enrollment"
}
