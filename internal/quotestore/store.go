// Package quotestore holds short-lived price quotes.
//
// Every backend implements GetLive as one atomic check-and-evict step: a
// quote is returned while now <= ExpiresAt, and once expired it is removed
// and never returned again, regardless of how many callers race on the key.
package quotestore

import (
	"context"
	"errors"
	"time"

	"github.com/tidyhome/booking-backend/internal/models"
)

// ErrDuplicateID is returned by Put when the id is already taken
var ErrDuplicateID = errors.New("quote id already exists")

// Store is the storage abstraction for quotes
type Store interface {
	// Put stores a new quote. Quotes are never overwritten.
	Put(ctx context.Context, q *models.Quote) error
	// GetLive returns the quote if it is live at now. A missing or expired
	// quote returns (nil, nil); an expired one is evicted.
	GetLive(ctx context.Context, id string, now time.Time) (*models.Quote, error)
	Delete(ctx context.Context, id string) error
	// Sweep evicts every quote expired at now and returns how many went
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}
