package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/pricing"
	"github.com/tidyhome/booking-backend/pkg/payment"
)

var tracer = otel.Tracer("github.com/tidyhome/booking-backend/internal/services")

// BookingReader loads bookings for payment
type BookingReader interface {
	GetSummary(ctx context.Context, id uuid.UUID) (*models.BookingSummary, error)
}

// CardGateway is the card provider
type CardGateway interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error)
}

// RedirectGateway is the redirect (wallet) provider
type RedirectGateway interface {
	CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error)
}

// AuditLogger records payment events
type AuditLogger interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	CheckDuplicate(ctx context.Context, provider models.PaymentProvider, eventID string, eventType models.PaymentEventType) (bool, error)
}

// PaymentService creates provider charges. Amounts always come from the
// stored booking or the pinned quote, never from the request.
type PaymentService struct {
	bookings    BookingReader
	quotes      QuoteVerifier
	card        CardGateway
	redirect    RedirectGateway
	audits      AuditLogger
	currency    string
	frontendURL string
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(bookings BookingReader, quotes QuoteVerifier, card CardGateway, redirect RedirectGateway, audits AuditLogger, currency, frontendURL string, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		bookings:    bookings,
		quotes:      quotes,
		card:        card,
		redirect:    redirect,
		audits:      audits,
		currency:    currency,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// CreateCardIntent charges the booking's stored price
func (s *PaymentService) CreateCardIntent(ctx context.Context, bookingID uuid.UUID) (*models.CardIntent, error) {
	ctx, span := tracer.Start(ctx, "payments.create_card_intent",
		trace.WithAttributes(attribute.String("booking.id", bookingID.String())))
	defer span.End()

	booking, err := s.payableBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	intent, err := s.card.CreateIntent(ctx, payment.IntentRequest{
		Amount:   pricing.ToMinor(booking.Price),
		Currency: s.currency,
		Metadata: map[string]string{"bookingId": bookingID.String()},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	audit := models.NewPaymentAudit(models.ProviderStripe, models.PaymentEventIntentCreated).
		SetBooking(bookingID).
		SetExternalID(intent.ID)
	s.audit(ctx, audit)

	return &models.CardIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

// CreateCardIntentFromQuote charges a live quote's pinned amount directly
func (s *PaymentService) CreateCardIntentFromQuote(ctx context.Context, quoteID string) (*models.CardIntent, error) {
	ctx, span := tracer.Start(ctx, "payments.create_card_intent_from_quote",
		trace.WithAttributes(attribute.String("quote.id", quoteID)))
	defer span.End()

	quote, err := s.quotes.VerifyQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, ErrQuoteNotFound
	}

	intent, err := s.card.CreateIntent(ctx, payment.IntentRequest{
		Amount:   quote.Amount,
		Currency: quote.Currency,
		Metadata: map[string]string{"quoteId": quote.ID},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.audit(ctx, models.NewPaymentAudit(models.ProviderStripe, models.PaymentEventIntentCreated).SetExternalID(intent.ID))

	return &models.CardIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

// CreateRedirectPreference opens a redirect checkout for the booking's stored price
func (s *PaymentService) CreateRedirectPreference(ctx context.Context, bookingID uuid.UUID) (*models.RedirectPreference, error) {
	ctx, span := tracer.Start(ctx, "payments.create_redirect_preference",
		trace.WithAttributes(attribute.String("booking.id", bookingID.String())))
	defer span.End()

	booking, err := s.payableBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	pref, err := s.redirect.CreatePreference(ctx, payment.PreferenceRequest{
		Title:     fmt.Sprintf("%s - booking %s", booking.ServiceName, bookingID),
		UnitPrice: booking.Price,
		Currency:  s.currency,
		Reference: bookingID.String(),
		Metadata:  map[string]string{"booking_id": bookingID.String()},
		BackURLs: payment.BackURLs{
			Success: s.frontendURL + "/success.html",
			Failure: s.frontendURL + "/payment-failed.html",
			Pending: s.frontendURL + "/pending.html",
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.audit(ctx, models.NewPaymentAudit(models.ProviderMercadoPago, models.PaymentEventPreferenceCreated).
		SetBooking(bookingID).
		SetExternalID(pref.ID))

	return &models.RedirectPreference{
		PreferenceID: pref.ID,
		RedirectURL:  pref.RedirectURL,
	}, nil
}

// CardReturnURL looks up the intent the browser came back with and returns
// the success or failure page to send it to
func (s *PaymentService) CardReturnURL(ctx context.Context, intentID, bookingID string) (string, error) {
	if intentID == "" {
		return s.FailurePage("missing_payment_intent"), nil
	}

	intent, err := s.card.RetrieveIntent(ctx, intentID)
	if err != nil {
		return "", err
	}

	if bookingID == "" {
		bookingID = intent.Metadata["bookingId"]
	}

	qs := url.Values{}
	qs.Set("booking_id", bookingID)
	qs.Set("amount", strconv.FormatInt(intent.Amount, 10))
	qs.Set("currency", intent.Currency)

	if intent.Succeeded() {
		return s.frontendURL + "/success.html?" + qs.Encode(), nil
	}

	qs.Set("code", intent.FailureCode)
	reason := intent.FailureReason
	if reason == "" {
		reason = intent.Status
	}
	qs.Set("reason", reason)
	return s.frontendURL + "/payment-failed.html?" + qs.Encode(), nil
}

// FailurePage is the frontend page for a card return that failed with reason
func (s *PaymentService) FailurePage(reason string) string {
	return s.frontendURL + "/payment-failed.html?" + url.Values{"reason": {reason}}.Encode()
}

func (s *PaymentService) payableBooking(ctx context.Context, id uuid.UUID) (*models.BookingSummary, error) {
	booking, err := s.bookings.GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !booking.IsPending() {
		return nil, ErrBookingNotPayable
	}
	return booking, nil
}

// audit failures are logged and never fail the payment flow
func (s *PaymentService) audit(ctx context.Context, audit *models.PaymentAudit) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).Warn("Payment audit not recorded")
	}
}
