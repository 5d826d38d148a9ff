package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentProvider identifies the provider that charged the customer
type PaymentProvider string

const (
	ProviderStripe      PaymentProvider = "stripe"
	ProviderMercadoPago PaymentProvider = "mercadopago"
)

// Payment is a provider charge reconciled against a booking.
// (Provider, ExternalID) is unique; redeliveries update the existing row.
type Payment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	BookingID  uuid.UUID       `json:"bookingId" db:"booking_id"`
	Provider   PaymentProvider `json:"provider" db:"provider"`
	ExternalID string          `json:"externalId" db:"external_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Currency   string          `json:"currency" db:"currency"`
	Status     string          `json:"status" db:"status"`
	Raw        RawJSON         `json:"raw,omitempty" db:"raw"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// CardIntent is the handshake returned to the browser for a card charge
type CardIntent struct {
	ID           string `json:"-"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"-"`
	Currency     string `json:"-"`
}

// RedirectPreference is a checkout session on the redirect provider
type RedirectPreference struct {
	PreferenceID string `json:"preferenceId"`
	RedirectURL  string `json:"redirectUrl"`
}
