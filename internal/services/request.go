package services

import (
	"strings"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/pricing"
	"github.com/tidyhome/booking-backend/pkg/validator"
)

// QuoteRequest is the body of POST /quote
type QuoteRequest struct {
	ServiceCode string   `json:"serviceCode" validate:"required,oneof=Regular Deep Preparation MovingOut Apartament Office"`
	Beds        *int     `json:"beds" validate:"required,min=0,max=10"`
	Baths       *int     `json:"baths" validate:"required,min=1,max=10"`
	Freq        string   `json:"freq" validate:"required,frequency"`
	Extras      []string `json:"extras" validate:"omitempty,dive,oneof=windows oven refrigerator iron"`
	Zip         string   `json:"zip" validate:"omitempty,min=3,max=16"`
}

// BookingRequest is the body of POST /bookings. Identity comes from the
// token, UserID or Customer, in that order.
type BookingRequest struct {
	UserID   string           `json:"userId"`
	Customer *models.Customer `json:"customer"`
	QuoteID  string           `json:"quoteId"`

	ServiceCode string   `json:"serviceCode" validate:"required,oneof=Regular Deep Preparation MovingOut Apartament Office"`
	Beds        *int     `json:"beds" validate:"required,min=0,max=10"`
	Baths       *int     `json:"baths" validate:"required,min=1,max=10"`
	Freq        string   `json:"freq" validate:"required,frequency"`
	Extras      []string `json:"extras" validate:"omitempty,dive,oneof=windows oven refrigerator iron"`
	Date        string   `json:"date" validate:"required,ymd"`
	Time        string   `json:"time" validate:"required,hhmm"`
	Address     string   `json:"address" validate:"required,min=5,max=255"`
	Zip         string   `json:"zip" validate:"required,min=3,max=16"`
}

// UserRequest is the body of POST /users
type UserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email,max=160"`
	Phone string `json:"phone" validate:"required,min=5,max=40"`
}

// NewRequestValidator returns the validator used for every request body
func NewRequestValidator() *validator.Validator {
	return validator.New(map[string]func(string) bool{
		"frequency": func(s string) bool {
			_, err := pricing.ParseFrequency(s)
			return err == nil
		},
	})
}

// pricingInput turns validated request fields into the canonical quote input
func pricingInput(serviceCode string, beds, baths int, freq string, extras []string, zip string) (models.QuoteInput, error) {
	f, err := pricing.ParseFrequency(freq)
	if err != nil {
		return models.QuoteInput{}, newValidationError("freq", err.Error())
	}
	return models.QuoteInput{
		ServiceCode: serviceCode,
		Beds:        beds,
		Baths:       baths,
		Freq:        f,
		Extras:      normalizeExtras(extras),
		Zip:         zip,
	}, nil
}

// normalizeExtras lower-cases and de-duplicates, keeping first-seen order.
// Extras are a set: a repeated extra is charged once.
func normalizeExtras(extras []string) []string {
	seen := make(map[string]struct{}, len(extras))
	out := make([]string, 0, len(extras))
	for _, e := range extras {
		e = strings.ToLower(strings.TrimSpace(e))
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
