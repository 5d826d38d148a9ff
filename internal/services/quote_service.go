package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/pricing"
	"github.com/tidyhome/booking-backend/internal/quotestore"
	"github.com/tidyhome/booking-backend/pkg/validator"
)

// ServiceCatalog reads the active services
type ServiceCatalog interface {
	GetActiveByCode(ctx context.Context, code string) (*models.Service, error)
	ListActive(ctx context.Context) ([]models.Service, error)
}

// QuoteService creates and verifies pinned price quotes
type QuoteService struct {
	catalog   ServiceCatalog
	store     quotestore.Store
	validator *validator.Validator
	currency  string
	ttl       time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(catalog ServiceCatalog, store quotestore.Store, v *validator.Validator, currency string, ttl time.Duration, logger *logrus.Logger) *QuoteService {
	return &QuoteService{
		catalog:   catalog,
		store:     store,
		validator: v,
		currency:  currency,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// TTL returns how long new quotes stay live
func (s *QuoteService) TTL() time.Duration {
	return s.ttl
}

// CreateQuote prices the request and pins the amount (minor units) under a new random id
func (s *QuoteService) CreateQuote(ctx context.Context, req QuoteRequest) (*models.Quote, error) {
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
		return nil, ErrServiceNotFound
	}

	major, err := pricing.ComputePrice(pricing.Input{
		BasePrice: service.BasePrice,
		Beds:      input.Beds,
		Baths:     input.Baths,
		Frequency: input.Freq,
		Extras:    input.Extras,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidInput) {
			return nil, newValidationError("_", err.Error())
		}
		return nil, err
	}

	now := s.now()
	quote := &models.Quote{
		ID:        uuid.NewString(),
		Amount:    pricing.ToMinor(major),
		Currency:  s.currency,
		Input:     input,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to store quote: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"quote_id":     quote.ID,
		"service_code": input.ServiceCode,
		"amount":       quote.Amount,
	}).Info("Quote created")

	return quote, nil
}

// VerifyQuote returns the quote while it is live, nil otherwise
func (s *QuoteService) VerifyQuote(ctx context.Context, id string) (*models.Quote, error) {
	if id == "" {
		return nil, nil
	}
	q, err := s.store.GetLive(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to verify quote: %w", err)
	}
	return q, nil
}
