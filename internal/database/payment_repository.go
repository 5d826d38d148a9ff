package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tidyhome/booking-backend/internal/models"
)

// ReconcileResult describes what one reconciliation changed
type ReconcileResult struct {
	PaymentID uuid.UUID
	// Inserted is false when the payment already existed and was updated
	Inserted bool
	// Confirmed is true only for the delivery that moved the booking to confirmed
	Confirmed bool
}

// PaymentRepository records provider payments against bookings
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RecordSuccess upserts the payment keyed by (provider, external_id) and
// confirms its pending booking, in one transaction. Redelivery of the same
// payment updates status and raw payload and leaves the booking untouched.
func (r *PaymentRepository) RecordSuccess(ctx context.Context, payment *models.Payment) (*ReconcileResult, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO payments (id, booking_id, provider, external_id, amount, currency, status, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, external_id) DO UPDATE
		SET status = EXCLUDED.status, raw = EXCLUDED.raw, updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`

	result := &ReconcileResult{}
	err = tx.QueryRowxContext(ctx, upsert,
		payment.ID, payment.BookingID, payment.Provider, payment.ExternalID,
		payment.Amount, payment.Currency, payment.Status, payment.Raw,
	).Scan(&result.PaymentID, &result.Inserted)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payment: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'confirmed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		payment.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	result.Confirmed = n > 0

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return result, nil
}
