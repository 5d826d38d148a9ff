package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/pkg/validator"
)

// TokenIssuer signs access tokens
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, email string) (string, error)
}

// UserService registers customers
type UserService struct {
	users     UserStore
	tokens    TokenIssuer
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewUserService creates a new UserService
func NewUserService(users UserStore, tokens TokenIssuer, v *validator.Validator, logger *logrus.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, validator: v, logger: logger}
}

// UpsertUser creates the user or refreshes name and phone for a known
// email, and returns an access token for it
func (s *UserService) UpsertUser(ctx context.Context, req UserRequest) (*models.User, string, error) {
	req.Name = validator.SanitizeString(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = validator.SanitizeString(req.Phone)

	if fields := s.validator.Struct(req); fields != nil {
		return nil, "", &ValidationError{Fields: fields}
	}

	user, err := s.users.Upsert(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User upserted")
	return user, token, nil
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
