package models

import "github.com/shopspring/decimal"

// Service is a bookable cleaning service from the catalog (read-only reference data)
type Service struct {
	ID          int64           `json:"id" db:"id"`
	Code        string          `json:"code" db:"code"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	BasePrice   decimal.Decimal `json:"basePrice" db:"base_price"`
	Active      bool            `json:"-" db:"active"`
}

// ServiceCodes lists the service codes accepted by bookings and quotes
var ServiceCodes = []string{"Regular", "Deep", "Preparation", "MovingOut", "Apartament", "Office"}
