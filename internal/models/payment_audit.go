package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventIntentCreated          PaymentEventType = "intent_created"
	PaymentEventPreferenceCreated      PaymentEventType = "preference_created"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventInvalidSignature       PaymentEventType = "invalid_signature"
	PaymentEventStatusCheck            PaymentEventType = "status_check"
	PaymentEventBookingConfirmed       PaymentEventType = "booking_confirmed"
	PaymentEventBookingConfirmFailed   PaymentEventType = "booking_confirmation_failed"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventIgnored                PaymentEventType = "ignored"
	PaymentEventError                  PaymentEventType = "error"
)

// PaymentAudit is an append-only log entry for one payment event
type PaymentAudit struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Provider   PaymentProvider `json:"provider" db:"provider"`
	EventType  PaymentEventType `json:"event_type" db:"event_type"`
	EventID    *string         `json:"event_id,omitempty" db:"event_id"`
	BookingID  *uuid.UUID      `json:"booking_id,omitempty" db:"booking_id"`
	ExternalID *string         `json:"external_id,omitempty" db:"external_id"`

	// Amount tracking
	ExpectedAmount *decimal.Decimal `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string          `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool            `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus *string `json:"payment_status,omitempty" db:"payment_status"`
	RawBody       *string `json:"raw_body,omitempty" db:"raw_body"`
	ErrorMessage  *string `json:"error_message,omitempty" db:"error_message"`
	IsDuplicate   bool    `json:"is_duplicate" db:"is_duplicate"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(provider PaymentProvider, eventType PaymentEventType) *PaymentAudit {
	return &PaymentAudit{
		ID:        uuid.New(),
		Provider:  provider,
		EventType: eventType,
		CreatedAt: time.Now(),
	}
}

// SetEventID sets the provider event id
func (pa *PaymentAudit) SetEventID(id string) *PaymentAudit {
	if id != "" {
		pa.EventID = &id
	}
	return pa
}

// SetBooking sets the booking the event refers to
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetExternalID sets the provider charge id
func (pa *PaymentAudit) SetExternalID(id string) *PaymentAudit {
	if id != "" {
		pa.ExternalID = &id
	}
	return pa
}

// SetAmounts records both amounts and returns whether they match exactly
func (pa *PaymentAudit) SetAmounts(expected, received decimal.Decimal, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	match := expected.Equal(received)
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus sets the payment status reported by the provider
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetRawBody stores the raw payload before parsing
func (pa *PaymentAudit) SetRawBody(body []byte) *PaymentAudit {
	s := string(body)
	pa.RawBody = &s
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		msg := err.Error()
		pa.ErrorMessage = &msg
	}
	return pa
}

// MarkAsDuplicate marks this event as a redelivery
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}
