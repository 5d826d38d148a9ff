package models

import (
	"sort"
	"strings"
	"time"

	"github.com/tidyhome/booking-backend/internal/pricing"
)

// QuoteInput is the canonical pricing request a quote was computed from
type QuoteInput struct {
	ServiceCode string            `json:"serviceCode"`
	Beds        int               `json:"beds"`
	Baths       int               `json:"baths"`
	Freq        pricing.Frequency `json:"freq"`
	Extras      []string          `json:"extras"`
	Zip         string            `json:"zip,omitempty"`
}

// Quote pins an amount (minor units) to the exact input that produced it.
// Quotes are immutable once created.
type Quote struct {
	ID        string     `json:"id"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Input     QuoteInput `json:"input"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// IsLive reports whether the quote can still be honoured at now
func (q *Quote) IsLive(now time.Time) bool {
	return !now.After(q.ExpiresAt)
}

// TTL returns the lifetime the quote was created with
func (q *Quote) TTL() time.Duration {
	return q.ExpiresAt.Sub(q.CreatedAt)
}

// SamePricing reports whether other would be priced exactly like in:
// same service, beds, baths, frequency and the same set of extras.
// The postal code does not affect the price and is ignored.
func (in QuoteInput) SamePricing(other QuoteInput) bool {
	if in.ServiceCode != other.ServiceCode ||
		in.Beds != other.Beds ||
		in.Baths != other.Baths ||
		in.Freq != other.Freq {
		return false
	}

	a, b := extraSet(in.Extras), extraSet(other.Extras)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// extraSet returns the sorted, de-duplicated, lower-cased extras
func extraSet(extras []string) []string {
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
	sort.Strings(out)
	return out
}
