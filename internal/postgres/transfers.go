package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// TransferByID loads a bank transfer record.
func (s *Store) TransferByID(ctx context.Context, id uuid.UUID) (*domain.BankTransfer, error) {
	const q = `
		SELECT id, user_id, order_id, course_id, amount_cents, currency,
		       status, payment_id, receipt_url, created_at
		FROM bank_transfers
		WHERE id = $1`

	var t domain.BankTransfer
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.UserID, &t.OrderID, &t.CourseID, &t.AmountCents, &t.Currency,
		&t.Status, &t.PaymentID, &t.ReceiptURL, &t.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "store.transfer_by_id", "transfer %s not found", id)
	}
	return &t, nil
}

// CourseIDByOrderID recovers the course a checkout session was opened
// for. Fallback path for legacy transfers whose course_id is null.
func (s *Store) CourseIDByOrderID(ctx context.Context, orderID string) (uuid.UUID, error) {
	const q = `SELECT course_id FROM checkout_sessions WHERE order_id = $1`

	var courseID *uuid.UUID
	if err := s.pool.QueryRow(ctx, q, orderID).Scan(&courseID); err != nil {
		return uuid.Nil, notFoundOr(err, "store.course_by_order_id", "checkout session %s not found", orderID)
	}
	if courseID == nil {
		return uuid.Nil, domain.Errorf(domain.ENOTFOUND, "store.course_by_order_id", "checkout session %s has no course", orderID)
	}
	return *courseID, nil
}

// UpdateTransferReceipt links a transfer to its payment and receipt in
// one statement, moving it to in_review.
func (s *Store) UpdateTransferReceipt(ctx context.Context, id, paymentID uuid.UUID, courseID uuid.UUID, receiptURL string) error {
	const q = `
		UPDATE bank_transfers
		SET payment_id = $2, course_id = $3, receipt_url = $4, status = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, id, paymentID, courseID, receiptURL, domain.TransferInReview)
	if err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.update_transfer_receipt", "updating transfer receipt")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ENOTFOUND, "store.update_transfer_receipt", "transfer %s not found", id)
	}
	return nil
}
