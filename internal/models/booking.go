package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the lifecycle state of a booking
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Created, waiting for payment
	BookingStatusConfirmed BookingStatus = "confirmed" // Provider reported a successful charge
	BookingStatusCancelled BookingStatus = "cancelled" // Reserved, no route exposes it yet
)

// Booking is a persisted booking request. Price is fixed at creation, in major units.
type Booking struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"userId" db:"user_id"`
	ServiceID int64           `json:"serviceId" db:"service_id"`
	Beds      int             `json:"beds" db:"beds"`
	Baths     int             `json:"baths" db:"baths"`
	Freq      string          `json:"freq" db:"freq"`
	Extras    pq.StringArray  `json:"extras" db:"extras"`
	Date      string          `json:"date" db:"booking_date"`
	Time      string          `json:"time" db:"booking_time"`
	Address   string          `json:"address" db:"address"`
	Zip       string          `json:"zip" db:"zip"`
	Price     decimal.Decimal `json:"price" db:"price"`
	QuoteID   *string         `json:"quoteId,omitempty" db:"quote_id"`
	Status    BookingStatus   `json:"status" db:"status"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// BookingSummary is a booking joined with the service display fields
type BookingSummary struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"userId" db:"user_id"`
	Date        string          `json:"date" db:"booking_date"`
	Time        string          `json:"time" db:"booking_time"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Status      BookingStatus   `json:"status" db:"status"`
	Beds        int             `json:"beds" db:"beds"`
	Baths       int             `json:"baths" db:"baths"`
	Freq        string          `json:"freq" db:"freq"`
	Extras      pq.StringArray  `json:"extras" db:"extras"`
	ServiceCode string          `json:"serviceCode" db:"service_code"`
	ServiceName string          `json:"serviceName" db:"service_name"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// IsPending reports whether the booking still awaits payment
func (b *BookingSummary) IsPending() bool {
	return b.Status == BookingStatusPending
}
