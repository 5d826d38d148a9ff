package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tidyhome/booking-backend/internal/database"
	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/pricing"
	"github.com/tidyhome/booking-backend/pkg/mq"
	"github.com/tidyhome/booking-backend/pkg/payment"
)

const eventIntentSucceeded = "payment_intent.succeeded"

// CardEventVerifier authenticates card provider webhooks
type CardEventVerifier interface {
	ConstructEvent(payload []byte, signatureHeader string) (*payment.Event, error)
}

// RedirectPaymentLookup queries the redirect provider for a payment
type RedirectPaymentLookup interface {
	GetPayment(ctx context.Context, id string) (*payment.RedirectPayment, error)
}

// PaymentRecorder stores a successful payment and confirms its booking
type PaymentRecorder interface {
	RecordSuccess(ctx context.Context, p *models.Payment) (*database.ReconcileResult, error)
}

// WebhookService reconciles provider notifications with bookings. Every
// handler is safe under duplicate and out-of-order delivery.
type WebhookService struct {
	verifier CardEventVerifier
	lookup   RedirectPaymentLookup
	bookings BookingReader
	payments PaymentRecorder
	audits   AuditLogger
	events   mq.EventPublisher
	logger   *logrus.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(verifier CardEventVerifier, lookup RedirectPaymentLookup, bookings BookingReader, payments PaymentRecorder, audits AuditLogger, events mq.EventPublisher, logger *logrus.Logger) *WebhookService {
	if events == nil {
		events = mq.NopPublisher{}
	}
	return &WebhookService{
		verifier: verifier,
		lookup:   lookup,
		bookings: bookings,
		payments: payments,
		audits:   audits,
		events:   events,
		logger:   logger,
	}
}

// HandleCardEvent verifies and applies one card provider event. Only a bad
// signature is an error the provider sees; unrelated events are acknowledged.
func (s *WebhookService) HandleCardEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	ctx, span := tracer.Start(ctx, "webhooks.card")
	defer span.End()

	event, err := s.verifier.ConstructEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			s.logger.WithError(err).Warn("Rejected card webhook with invalid signature")
			s.audit(ctx, models.NewPaymentAudit(models.ProviderStripe, models.PaymentEventInvalidSignature).
				SetRawBody(payload).
				SetError(err))
			span.SetStatus(codes.Error, "invalid signature")
			return ErrInvalidSignature
		}
		return err
	}

	span.SetAttributes(attribute.String("event.id", event.ID), attribute.String("event.type", event.Type))
	s.audit(ctx, models.NewPaymentAudit(models.ProviderStripe, models.PaymentEventWebhookReceived).
		SetEventID(event.ID).
		SetRawBody(payload))

	if event.Type != eventIntentSucceeded || event.Intent == nil {
		s.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Debug("Card webhook acknowledged without action")
		return nil
	}

	intent := event.Intent
	rawBookingID := intent.Metadata["bookingId"]
	if rawBookingID == "" {
		s.logger.WithFields(logrus.Fields{
			"event_id":       event.ID,
			"payment_intent": intent.ID,
		}).Info("Payment intent has no bookingId, ignoring")
		return nil
	}

	received := intent.AmountReceived
	if received == 0 {
		received = intent.Amount
	}
	currency := strings.ToUpper(intent.Currency)
	if currency == "" {
		currency = "USD"
	}

	return s.reconcile(ctx, event.ID, rawBookingID, &models.Payment{
		Provider:   models.ProviderStripe,
		ExternalID: intent.ID,
		Amount:     pricing.ToMajor(received),
		Currency:   currency,
		Status:     intent.Status,
		Raw:        models.RawJSON(intent.Raw),
	})
}

// HandleRedirectNotification never trusts the notification body: it only
// uses the payment id to re-query the provider and acts on that answer.
func (s *WebhookService) HandleRedirectNotification(ctx context.Context, topic, paymentID string) error {
	ctx, span := tracer.Start(ctx, "webhooks.redirect",
		trace.WithAttributes(attribute.String("notification.topic", topic)))
	defer span.End()

	if topic != "payment" || paymentID == "" {
		s.logger.WithFields(logrus.Fields{
			"topic": topic,
			"id":    paymentID,
		}).Debug("Redirect notification acknowledged without action")
		return nil
	}

	p, err := s.lookup.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID).Error("Failed to query redirect payment")
		s.audit(ctx, models.NewPaymentAudit(models.ProviderMercadoPago, models.PaymentEventError).
			SetExternalID(paymentID).
			SetError(err))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.audit(ctx, models.NewPaymentAudit(models.ProviderMercadoPago, models.PaymentEventStatusCheck).
		SetExternalID(p.ID).
		SetPaymentStatus(p.Status).
		SetRawBody(p.Raw))

	if !p.Approved() {
		s.logger.WithFields(logrus.Fields{
			"payment_id": p.ID,
			"status":     p.Status,
		}).Info("Redirect payment not approved, nothing to do")
		return nil
	}

	return s.reconcile(ctx, "", p.ExternalReference, &models.Payment{
		Provider:   models.ProviderMercadoPago,
		ExternalID: p.ID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     p.Status,
		Raw:        models.RawJSON(p.Raw),
	})
}

// reconcile records a successful payment against the booking it names
func (s *WebhookService) reconcile(ctx context.Context, eventID, rawBookingID string, p *models.Payment) error {
	log := s.logger.WithFields(logrus.Fields{
		"provider":    p.Provider,
		"external_id": p.ExternalID,
		"event_id":    eventID,
		"booking_id":  rawBookingID,
	})

	bookingID, err := uuid.Parse(rawBookingID)
	if err != nil {
		log.Warn("Payment references a malformed booking id, ignoring")
		return nil
	}

	booking, err := s.bookings.GetSummary(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		log.Warn("Payment references an unknown booking, ignoring")
		s.audit(ctx, models.NewPaymentAudit(p.Provider, models.PaymentEventBookingConfirmFailed).
			SetEventID(eventID).
			SetExternalID(p.ExternalID).
			SetError(ErrBookingNotFound))
		return nil
	}
	p.BookingID = bookingID

	audit := models.NewPaymentAudit(p.Provider, models.PaymentEventBookingConfirmed).
		SetEventID(eventID).
		SetBooking(bookingID).
		SetExternalID(p.ExternalID).
		SetPaymentStatus(p.Status)

	if s.audits != nil && eventID != "" {
		if dup, err := s.audits.CheckDuplicate(ctx, p.Provider, eventID, models.PaymentEventBookingConfirmed); err == nil && dup {
			audit.MarkAsDuplicate()
		}
	}

	if !audit.SetAmounts(booking.Price, p.Amount, p.Currency) {
		log.WithFields(logrus.Fields{
			"expected": booking.Price.StringFixed(2),
			"received": p.Amount.StringFixed(2),
		}).Warn("Paid amount differs from booking price")
		s.audit(ctx, models.NewPaymentAudit(p.Provider, models.PaymentEventReconciliationMismatch).
			SetEventID(eventID).
			SetBooking(bookingID).
			SetExternalID(p.ExternalID))
	}

	result, err := s.payments.RecordSuccess(ctx, p)
	if err != nil {
		log.WithError(err).Error("Failed to record payment")
		s.audit(ctx, audit.SetError(err))
		return err
	}

	if !result.Confirmed {
		audit.MarkAsDuplicate()
	}
	s.audit(ctx, audit)

	log.WithFields(logrus.Fields{
		"payment_id": result.PaymentID,
		"inserted":   result.Inserted,
		"confirmed":  result.Confirmed,
	}).Info("Payment reconciled")

	if result.Confirmed {
		event := BookingEvent{
			BookingID:  bookingID,
			UserID:     booking.UserID,
			Status:     models.BookingStatusConfirmed,
			Price:      booking.Price,
			Provider:   string(p.Provider),
			OccurredAt: time.Now(),
		}
		if err := s.events.PublishJSON(ctx, mq.KeyBookingConfirmed, event); err != nil {
			log.WithError(err).Warn("Failed to publish booking confirmation")
		}
	}
	return nil
}

func (s *WebhookService) audit(ctx context.Context, audit *models.PaymentAudit) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).Warn("Payment audit not recorded")
	}
}
