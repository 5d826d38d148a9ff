// Package pricing computes cleaning prices and converts amounts across the
// major/minor currency unit boundary.
//
// All arithmetic is done in decimal so identical inputs always produce the
// same amount, independent of float rounding.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Frequency is how often the cleaning repeats
type Frequency string

const (
	FrequencyOnce     Frequency = "once"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ErrInvalidInput is returned for inputs the engine refuses to price
var ErrInvalidInput = errors.New("invalid pricing input")

var (
	unitBed  = decimal.NewFromInt(8)
	unitBath = decimal.NewFromInt(12)

	multipliers = map[Frequency]decimal.Decimal{
		FrequencyOnce:     decimal.NewFromInt(1),
		FrequencyWeekly:   decimal.RequireFromString("0.85"),
		FrequencyBiweekly: decimal.RequireFromString("0.90"),
		FrequencyMonthly:  decimal.RequireFromString("0.95"),
	}

	// "refrigerator" is deliberately absent: it is priced with the fallback.
	extraSurcharges = map[string]decimal.Decimal{
		"windows": decimal.NewFromInt(15),
		"oven":    decimal.NewFromInt(12),
		"fridge":  decimal.NewFromInt(12),
		"iron":    decimal.NewFromInt(10),
	}

	fallbackSurcharge = decimal.NewFromInt(8)

	hundred = decimal.NewFromInt(100)
)

// Input is everything the engine needs to price one booking
type Input struct {
	BasePrice decimal.Decimal
	Beds      int
	Baths     int
	Frequency Frequency
	Extras    []string
}

// ParseFrequency maps a client value ("Weekly", "weekly", ...) to a Frequency
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := multipliers[f]; !ok {
		return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, s)
	}
	return f, nil
}

// ComputePrice returns the price in major units rounded to 2 decimals.
// amount = (base + beds*8 + baths*12) * multiplier(freq) + sum(surcharge(extra))
func ComputePrice(in Input) (decimal.Decimal, error) {
	if in.Beds < 0 {
		return decimal.Zero, fmt.Errorf("%w: beds must not be negative", ErrInvalidInput)
	}
	if in.Baths < 0 {
		return decimal.Zero, fmt.Errorf("%w: baths must not be negative", ErrInvalidInput)
	}
	if in.BasePrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: base price must not be negative", ErrInvalidInput)
	}

	multiplier, ok := multipliers[in.Frequency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, in.Frequency)
	}

	price := in.BasePrice.
		Add(unitBed.Mul(decimal.NewFromInt(int64(in.Beds)))).
		Add(unitBath.Mul(decimal.NewFromInt(int64(in.Baths)))).
		Mul(multiplier)

	for _, extra := range in.Extras {
		price = price.Add(Surcharge(extra))
	}

	return price.Round(2), nil
}

// Surcharge returns the flat surcharge for one extra
func Surcharge(extra string) decimal.Decimal {
	if s, ok := extraSurcharges[strings.ToLower(strings.TrimSpace(extra))]; ok {
		return s
	}
	return fallbackSurcharge
}

// ToMinor converts a major-unit amount to integer minor units, rounding half-up
func ToMinor(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

// ToMajor converts integer minor units to a major-unit amount
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
