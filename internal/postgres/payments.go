package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

const paymentColumns = `
	id, provider, provider_payment_id, user_id, organization_id,
	product_type, product_id, amount_cents, currency, status, created_at`

func scanPayment(row interface{ Scan(...any) error }) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.Provider, &p.ProviderPaymentID, &p.UserID, &p.OrganizationID,
		&p.ProductType, &p.ProductID, &p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentByProviderPaymentID is the idempotency pre-check for capture.
func (s *Store) PaymentByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`

	p, err := scanPayment(s.pool.QueryRow(ctx, q, providerPaymentID))
	if err != nil {
		return nil, notFoundOr(err, "store.payment_by_provider_id", "payment for provider id %s not found", providerPaymentID)
	}
	return p, nil
}

// PaymentByID loads a payment by its local id.
func (s *Store) PaymentByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "store.payment_by_id", "payment %s not found", id)
	}
	return p, nil
}

// InsertPayment records a payment. A unique violation on
// provider_payment_id means a concurrent capture won the race; it is
// reported as ECONFLICT so the caller can treat it as already
// processed.
func (s *Store) InsertPayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	q := `
		INSERT INTO payments (provider, provider_payment_id, user_id, organization_id,
		                      product_type, product_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + paymentColumns

	inserted, err := scanPayment(s.pool.QueryRow(ctx, q,
		p.Provider, p.ProviderPaymentID, p.UserID, p.OrganizationID,
		p.ProductType, p.ProductID, p.AmountCents, p.Currency, p.Status,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Errorf(domain.ECONFLICT, "store.insert_payment", "payment already recorded for this provider id")
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, "store.insert_payment", "inserting payment")
	}
	return inserted, nil
}

// DeletePayment removes a payment row. Used as the compensating step
// when fulfillment fails after insert.
func (s *Store) DeletePayment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.delete_payment", "deleting payment")
	}
	return nil
}

// UpdatePaymentStatus moves a payment to a new lifecycle status.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.update_payment_status", "updating payment status")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ENOTFOUND, "store.update_payment_status", "payment %s not found", id)
	}
	return nil
}

// PaymentsByUser lists a user's payments, newest first.
func (s *Store) PaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "store.payments_by_user", "listing payments")
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "store.payments_by_user", "scanning payment")
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "store.payments_by_user", "listing payments")
	}
	return payments, nil
}

// InsertPaymentEvent records the raw provider payload for forensics.
// Written before fulfillment so failed captures stay reconstructable.
func (s *Store) InsertPaymentEvent(ctx context.Context, provider, providerPaymentID string, payload []byte) error {
	const q = `
		INSERT INTO payment_events (provider, provider_payment_id, payload)
		VALUES ($1, $2, $3)`

	if _, err := s.pool.Exec(ctx, q, provider, providerPaymentID, payload); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "store.insert_payment_event", "recording payment event")
	}
	return nil
}
