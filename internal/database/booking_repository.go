package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tidyhome/booking-backend/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingSummaryQuery = `
	SELECT b.id, b.user_id, b.booking_date, b.booking_time, b.price, b.status,
	       b.beds, b.baths, b.freq, b.extras, b.created_at,
	       s.code AS service_code, s.name AS service_name
	FROM bookings b
	JOIN services s ON s.id = b.service_id
`

// Create inserts a booking and fills in the database timestamps
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}

	query := `
		INSERT INTO bookings (
			id, user_id, service_id, beds, baths, freq, extras,
			booking_date, booking_time, address, zip, price, quote_id, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		booking.ID, booking.UserID, booking.ServiceID, booking.Beds, booking.Baths,
		booking.Freq, booking.Extras, booking.Date, booking.Time, booking.Address,
		booking.Zip, booking.Price, booking.QuoteID, booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetSummary returns the booking joined with its service, or nil when absent
func (r *BookingRepository) GetSummary(ctx context.Context, id uuid.UUID) (*models.BookingSummary, error) {
	var summary models.BookingSummary
	err := r.db.GetContext(ctx, &summary, bookingSummaryQuery+` WHERE b.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &summary, nil
}

// ListByUser returns the user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BookingSummary, error) {
	bookings := []models.BookingSummary{}
	err := r.db.SelectContext(ctx, &bookings, bookingSummaryQuery+` WHERE b.user_id = $1 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}
