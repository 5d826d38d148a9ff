package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tidyhome/booking-backend/internal/models"
)

// ServiceRepository reads the service catalog
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new service repository
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// GetActiveByCode returns the active service with the given code, or nil
func (r *ServiceRepository) GetActiveByCode(ctx context.Context, code string) (*models.Service, error) {
	query := `
		SELECT id, code, name, description, base_price, active
		FROM services
		WHERE code = $1 AND active = TRUE
		LIMIT 1
	`

	var service models.Service
	err := r.db.GetContext(ctx, &service, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

// ListActive returns every active service ordered by id
func (r *ServiceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	query := `
		SELECT id, code, name, description, base_price, active
		FROM services
		WHERE active = TRUE
		ORDER BY id
	`

	services := []models.Service{}
	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
