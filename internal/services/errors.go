package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidyhome/booking-backend/pkg/payment"
)

// ErrNotFound is the root of every "unknown resource" error
var ErrNotFound = errors.New("not found")

var (
	ErrServiceNotFound = fmt.Errorf("service %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrQuoteNotFound   = fmt.Errorf("quote %w or expired", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	// ErrServiceUnavailable is returned when a booking names an unknown or inactive service
	ErrServiceUnavailable = errors.New("service not available")
	ErrMissingIdentity    = errors.New("missing userId or customer.email")
	ErrQuoteMismatch      = errors.New("quote does not match booking details")
	ErrBookingNotPayable  = errors.New("booking is not awaiting payment")

	ErrInvalidSignature = payment.ErrInvalidSignature
)

// ProviderError is an upstream payment provider failure
type ProviderError = payment.ProviderError

// ValidationError lists the offending request fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
