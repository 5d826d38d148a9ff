package quotestore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidyhome/booking-backend/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newQuote(id string) *models.Quote {
	return &models.Quote{
		ID:       id,
		Amount:   6630,
		Currency: "USD",
		Input: models.QuoteInput{
			ServiceCode: "Regular",
			Beds:        2,
			Baths:       1,
			Freq:        "weekly",
			Extras:      []string{"oven"},
		},
		CreatedAt: t0,
		ExpiresAt: t0.Add(15 * time.Minute),
	}
}

func setupBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   setupBoltStore(t),
	}
}

func TestStore_PutAndGetLive(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, newQuote("q1")))

			q, err := s.GetLive(ctx, "q1", t0.Add(time.Minute))
			require.NoError(t, err)
			require.NotNil(t, q)
			assert.Equal(t, int64(6630), q.Amount)
			assert.Equal(t, "Regular", q.Input.ServiceCode)
			assert.Equal(t, []string{"oven"}, q.Input.Extras)
			assert.True(t, q.ExpiresAt.Equal(t0.Add(15*time.Minute)))
		})
	}
}

func TestStore_PutRejectsDuplicateID(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, newQuote("q1")))
			assert.ErrorIs(t, s.Put(ctx, newQuote("q1")), ErrDuplicateID)
		})
	}
}

func TestStore_UnknownID(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			q, err := s.GetLive(context.Background(), "missing", t0)
			require.NoError(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestStore_ExpiryIsIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, newQuote("q1")))
			expiresAt := t0.Add(15 * time.Minute)

			// Live up to and including expiresAt
			q, err := s.GetLive(ctx, "q1", expiresAt)
			require.NoError(t, err)
			assert.NotNil(t, q)

			for i := 0; i < 3; i++ {
				q, err = s.GetLive(ctx, "q1", expiresAt.Add(time.Millisecond))
				require.NoError(t, err)
				assert.Nil(t, q)
			}

			// Evicted, so even an earlier clock no longer sees it
			q, err = s.GetLive(ctx, "q1", t0)
			require.NoError(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestStore_Sweep(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, newQuote("old")))
			fresh := newQuote("fresh")
			fresh.ExpiresAt = t0.Add(time.Hour)
			require.NoError(t, s.Put(ctx, fresh))

			removed, err := s.Sweep(ctx, t0.Add(30*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, removed)

			q, err := s.GetLive(ctx, "fresh", t0.Add(30*time.Minute))
			require.NoError(t, err)
			assert.NotNil(t, q)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, newQuote("q1")))
			require.NoError(t, s.Delete(ctx, "q1"))
			require.NoError(t, s.Delete(ctx, "q1"))

			q, err := s.GetLive(ctx, "q1", t0)
			require.NoError(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestMemoryStore_ConcurrentVerifyAtBoundary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newQuote("q1")))
	after := t0.Add(15*time.Minute + time.Nanosecond)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := s.GetLive(ctx, "q1", after)
			if err == nil && q != nil {
				mu.Lock()
				seen++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, seen)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newQuote("q1")))

	q, err := s.GetLive(ctx, "q1", t0)
	require.NoError(t, err)
	q.Input.Extras[0] = "windows"

	again, err := s.GetLive(ctx, "q1", t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"oven"}, again.Input.Extras)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.db")
	ctx := context.Background()

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, newQuote("q1")))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	q, err := reopened.GetLive(ctx, "q1", t0)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, int64(6630), q.Amount)
}
