package quotestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/tidyhome/booking-backend/internal/models"
)

const quoteBucket = "quotes"

// BoltStore keeps quotes in an embedded BoltDB file so they survive a
// restart of a single instance.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open quote database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(quoteBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create quote bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(_ context.Context, q *models.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(quoteBucket))
		if b.Get([]byte(q.ID)) != nil {
			return ErrDuplicateID
		}
		return b.Put([]byte(q.ID), data)
	})
}

// GetLive runs inside a write transaction; bolt serialises writers, which
// makes the check and the eviction one step.
func (s *BoltStore) GetLive(_ context.Context, id string, now time.Time) (*models.Quote, error) {
	var result *models.Quote

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(quoteBucket))
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}

		var q models.Quote
		if err := json.Unmarshal(v, &q); err != nil {
			return fmt.Errorf("failed to decode quote %s: %w", id, err)
		}
		if !q.IsLive(now) {
			return b.Delete([]byte(id))
		}
		result = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BoltStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(quoteBucket)).Delete([]byte(id))
	})
}

func (s *BoltStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(quoteBucket))

		// Collect first: deleting while iterating a cursor skips keys
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var q models.Quote
			if err := json.Unmarshal(v, &q); err != nil || !q.IsLive(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep quotes: %w", err)
	}
	return removed, nil
}

// Close releases the database file lock
func (s *BoltStore) Close() error {
	return s.db.Close()
}
