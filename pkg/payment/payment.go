// Package payment talks to the card and redirect payment providers.
//
// Amounts sent to the card provider are integer minor units. Amounts on the
// redirect provider are decimal major units, as its API expects.
package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSignature is returned when a webhook signature does not verify
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ProviderError wraps a failed provider call. Retryable is true for network
// failures, timeouts, throttling and 5xx responses; the caller decides
// whether to retry, this package never does.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Code       string
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// retryableStatus reports whether an HTTP status is worth retrying
func retryableStatus(code int) bool {
	return code >= 500 || code == 429
}

// IntentRequest describes a card charge to create
type IntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Intent is the provider-side card charge
type Intent struct {
	ID             string
	ClientSecret   string
	Amount         int64
	AmountReceived int64
	Currency       string
	Status         string
	Metadata       map[string]string
	FailureCode    string
	FailureReason  string
	Raw            []byte
}

// Succeeded reports whether the provider settled or is settling the charge
func (i *Intent) Succeeded() bool {
	return i.Status == "succeeded" || i.Status == "processing"
}

// Event is a verified card provider webhook event
type Event struct {
	ID   string
	Type string
	// Intent is set for payment_intent.* events
	Intent *Intent
}

// PreferenceRequest describes a redirect checkout
type PreferenceRequest struct {
	Title     string
	UnitPrice decimal.Decimal
	Currency  string
	Reference string
	Metadata  map[string]string
	BackURLs  BackURLs
}

// BackURLs are the frontend pages the redirect provider returns to
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Preference is a created redirect checkout
type Preference struct {
	ID          string
	RedirectURL string
}

// RedirectPayment is a payment as reported by the redirect provider's API
type RedirectPayment struct {
	ID                string
	Status            string
	ExternalReference string
	Amount            decimal.Decimal
	Currency          string
	Raw               []byte
}

// Approved reports whether the provider approved the payment
func (p *RedirectPayment) Approved() bool {
	return p.Status == "approved"
}
