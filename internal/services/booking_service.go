package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/pricing"
	"github.com/tidyhome/booking-backend/pkg/mq"
	"github.com/tidyhome/booking-backend/pkg/validator"
)

// BookingStore persists bookings
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetSummary(ctx context.Context, id uuid.UUID) (*models.BookingSummary, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BookingSummary, error)
}

// QuoteVerifier returns live quotes
type QuoteVerifier interface {
	VerifyQuote(ctx context.Context, id string) (*models.Quote, error)
}

// BookingEvent is published on booking.created and booking.confirmed
type BookingEvent struct {
	BookingID  uuid.UUID            `json:"bookingId"`
	UserID     uuid.UUID            `json:"userId"`
	Status     models.BookingStatus `json:"status"`
	Price      decimal.Decimal      `json:"price"`
	Provider   string               `json:"provider,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// BookingService is the booking ledger
type BookingService struct {
	bookings     BookingStore
	catalog      ServiceCatalog
	quotes       QuoteVerifier
	identity     *IdentityChain
	validator    *validator.Validator
	events       mq.EventPublisher
	strictQuotes bool
	logger       *logrus.Logger
}

// BookingServiceConfig holds the collaborators of BookingService
type BookingServiceConfig struct {
	Bookings  BookingStore
	Catalog   ServiceCatalog
	Quotes    QuoteVerifier
	Identity  *IdentityChain
	Validator *validator.Validator
	Events    mq.EventPublisher
	// StrictQuotes rejects bookings whose quote is unknown, expired or
	// mismatched instead of re-pricing them
	StrictQuotes bool
	Logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	events := cfg.Events
	if events == nil {
		events = mq.NopPublisher{}
	}
	return &BookingService{
		bookings:     cfg.Bookings,
		catalog:      cfg.Catalog,
		quotes:       cfg.Quotes,
		identity:     cfg.Identity,
		validator:    cfg.Validator,
		events:       events,
		strictQuotes: cfg.StrictQuotes,
		logger:       cfg.Logger,
	}
}

// CreateBooking resolves the user, validates and prices the request and
// stores a pending booking
func (s *BookingService) CreateBooking(ctx context.Context, authUserID *uuid.UUID, req BookingRequest) (*models.BookingSummary, error) {
	userID, err := s.identity.Resolve(ctx, IdentityClaim{
		AuthenticatedUserID: authUserID,
		UserID:              req.UserID,
		Customer:            req.Customer,
	})
	if err != nil {
		return nil, err
	}

	req.Address = validator.SanitizeString(req.Address)
	req.Zip = validator.SanitizeString(req.Zip)
	if fields := s.validator.Struct(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	input, err := pricingInput(req.ServiceCode, *req.Beds, *req.Baths, req.Freq, req.Extras, req.Zip)
	if err != nil {
		return nil, err
	}

	service, err := s.catalog.GetActiveByCode(ctx, input.ServiceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve service: %w", err)
	}
	if service == nil {
		return nil, ErrServiceUnavailable
	}

	price, quoteID, err := s.price(ctx, service, input, req.QuoteID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:        uuid.New(),
		UserID:    userID,
		ServiceID: service.ID,
		Beds:      input.Beds,
		Baths:     input.Baths,
		Freq:      string(input.Freq),
		Extras:    pq.StringArray(input.Extras),
		Date:      req.Date,
		Time:      req.Time[:5], // HH:MM, the rest of the value is free text
		Address:   req.Address,
		Zip:       req.Zip,
		Price:     price,
		QuoteID:   quoteID,
		Status:    models.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
		"price":      price.StringFixed(2),
		"quoted":     quoteID != nil,
	}).Info("Booking created")

	s.publish(ctx, mq.KeyBookingCreated, BookingEvent{
		BookingID:  booking.ID,
		UserID:     userID,
		Status:     booking.Status,
		Price:      price,
		OccurredAt: booking.CreatedAt,
	})

	return &models.BookingSummary{
		ID:          booking.ID,
		UserID:      booking.UserID,
		Date:        booking.Date,
		Time:        booking.Time,
		Price:       booking.Price,
		Status:      booking.Status,
		Beds:        booking.Beds,
		Baths:       booking.Baths,
		Freq:        booking.Freq,
		Extras:      booking.Extras,
		ServiceCode: service.Code,
		ServiceName: service.Name,
		CreatedAt:   booking.CreatedAt,
	}, nil
}

// price returns the pinned quote amount when a live quote matches the
// input, otherwise a fresh price. quoteID is set only when the quote was used.
func (s *BookingService) price(ctx context.Context, service *models.Service, input models.QuoteInput, requestedQuote string) (decimal.Decimal, *string, error) {
	if requestedQuote != "" {
		q, err := s.quotes.VerifyQuote(ctx, requestedQuote)
		if err != nil {
			return decimal.Zero, nil, err
		}

		switch {
		case q == nil:
			if s.strictQuotes {
				return decimal.Zero, nil, ErrQuoteNotFound
			}
			s.logger.WithField("quote_id", requestedQuote).Info("Quote unknown or expired, pricing fresh")
		case !q.Input.SamePricing(input):
			if s.strictQuotes {
				return decimal.Zero, nil, ErrQuoteMismatch
			}
			s.logger.WithField("quote_id", requestedQuote).Warn("Quote does not match booking details, pricing fresh")
		default:
			id := q.ID
			return pricing.ToMajor(q.Amount), &id, nil
		}
	}

	price, err := pricing.ComputePrice(pricing.Input{
		BasePrice: service.BasePrice,
		Beds:      input.Beds,
		Baths:     input.Baths,
		Frequency: input.Freq,
		Extras:    input.Extras,
	})
	if err != nil {
		return decimal.Zero, nil, newValidationError("_", err.Error())
	}
	return price, nil, nil
}

// ListBookings returns the user's bookings, newest first
func (s *BookingService) ListBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingSummary, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// publish never fails the request; the event is best effort
func (s *BookingService) publish(ctx context.Context, key string, event BookingEvent) {
	if err := s.events.PublishJSON(ctx, key, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"routing_key": key,
			"booking_id":  event.BookingID,
		}).Warn("Failed to publish booking event")
	}
}
