package quotestore

import (
	"context"
	"sync"
	"time"

	"github.com/tidyhome/booking-backend/internal/models"
)

// MemoryStore keeps quotes in process memory. Quotes are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	quotes map[string]models.Quote
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[string]models.Quote)}
}

func (s *MemoryStore) Put(_ context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotes[q.ID]; ok {
		return ErrDuplicateID
	}
	s.quotes[q.ID] = copyQuote(q)
	return nil
}

func (s *MemoryStore) GetLive(_ context.Context, id string, now time.Time) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, nil
	}
	if !q.IsLive(now) {
		delete(s.quotes, id)
		return nil, nil
	}
	out := copyQuote(&q)
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.quotes, id)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, q := range s.quotes {
		if !q.IsLive(now) {
			delete(s.quotes, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored quotes, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes)
}

func (s *MemoryStore) Close() error { return nil }

// copyQuote detaches the extras slice so callers cannot mutate stored input
func copyQuote(q *models.Quote) models.Quote {
	out := *q
	out.Input.Extras = append([]string(nil), q.Input.Extras...)
	return out
}
