package quotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tidyhome/booking-backend/internal/models"
)

// PostgresStore keeps quotes in the quotes table, shared by every instance
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a store over an open connection
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type quoteRow struct {
	ID        string    `db:"id"`
	Amount    int64     `db:"amount"`
	Currency  string    `db:"currency"`
	Input     []byte    `db:"input"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (s *PostgresStore) Put(ctx context.Context, q *models.Quote) error {
	input, err := json.Marshal(q.Input)
	if err != nil {
		return fmt.Errorf("failed to encode quote input: %w", err)
	}

	query := `
		INSERT INTO quotes (id, amount, currency, input, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query, q.ID, q.Amount, q.Currency, string(input), q.CreatedAt, q.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to store quote: %w", err)
	}
	return nil
}

// GetLive evicts and reads in one statement. The SELECT sees the snapshot
// taken before the DELETE, so the expiry filter is repeated there.
func (s *PostgresStore) GetLive(ctx context.Context, id string, now time.Time) (*models.Quote, error) {
	query := `
		WITH expired AS (
			DELETE FROM quotes WHERE id = $1 AND expires_at < $2 RETURNING id
		)
		SELECT id, amount, currency, input, created_at, expires_at
		FROM quotes
		WHERE id = $1 AND expires_at >= $2
	`

	var row quoteRow
	err := s.db.GetContext(ctx, &row, query, id, now)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	q := &models.Quote{
		ID:        row.ID,
		Amount:    row.Amount,
		Currency:  row.Currency,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if err := json.Unmarshal(row.Input, &q.Input); err != nil {
		return nil, fmt.Errorf("failed to decode quote input: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	return nil
}

func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep quotes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// Close is a no-op; the connection belongs to the caller
func (s *PostgresStore) Close() error { return nil }
