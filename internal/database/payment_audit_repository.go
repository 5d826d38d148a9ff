package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, provider, event_type, event_id, booking_id, external_id,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, raw_body, error_message, is_duplicate, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.Provider, audit.EventType, audit.EventID, audit.BookingID, audit.ExternalID,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.RawBody, audit.ErrorMessage, audit.IsDuplicate, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"provider":   audit.Provider,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"provider":   audit.Provider,
	}).Debug("Payment audit logged")

	return nil
}

// CheckDuplicate reports whether a provider event already produced an
// audit row of the given type
func (r *PaymentAuditRepository) CheckDuplicate(ctx context.Context, provider models.PaymentProvider, eventID string, eventType models.PaymentEventType) (bool, error) {
	if eventID == "" {
		return false, nil
	}

	var count int
	query := `
		SELECT COUNT(*) FROM payment_audits
		WHERE provider = $1
		AND event_id = $2
		AND event_type = $3
		AND is_duplicate = FALSE`

	if err := r.db.GetContext(ctx, &count, query, provider, eventID, eventType); err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return count > 0, nil
}
