package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tidyhome/booking-backend/internal/models"
)

// UserRepository handles user-related database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, created_at, updated_at`

// GetByID retrieves a user by ID, or nil when absent
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Upsert creates the user or updates name and phone of the existing one
func (r *UserRepository) Upsert(ctx context.Context, name, email, phone string) (*models.User, error) {
	query := `
		INSERT INTO users (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, phone = EXCLUDED.phone, updated_at = NOW()
		RETURNING ` + userColumns

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, uuid.New(), name, email, phone); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

// FindOrCreateByEmail returns the user with this email, creating it when
// absent. An existing user is left untouched.
func (r *UserRepository) FindOrCreateByEmail(ctx context.Context, name, email, phone string) (*models.User, error) {
	// The no-op update makes RETURNING yield the existing row on conflict
	query := `
		INSERT INTO users (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING ` + userColumns

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, uuid.New(), name, email, phone); err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}
	return &user, nil
}
