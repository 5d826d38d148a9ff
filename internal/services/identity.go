package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/pkg/validator"
)

// UserStore persists customers
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Upsert(ctx context.Context, name, email, phone string) (*models.User, error)
	FindOrCreateByEmail(ctx context.Context, name, email, phone string) (*models.User, error)
}

// IdentityClaim is everything a request offers to identify its user
type IdentityClaim struct {
	AuthenticatedUserID *uuid.UUID
	UserID              string
	Customer            *models.Customer
}

// IdentityResolver turns a claim into a user id. ok=false passes the claim
// to the next resolver.
type IdentityResolver interface {
	Name() string
	Resolve(ctx context.Context, claim IdentityClaim) (userID uuid.UUID, ok bool, err error)
}

// IdentityChain tries its resolvers in order; the first match wins
type IdentityChain struct {
	resolvers []IdentityResolver
	logger    *logrus.Logger
}

// NewIdentityChain builds the authenticated -> userId -> email chain
func NewIdentityChain(users UserStore, v *validator.Validator, logger *logrus.Logger) *IdentityChain {
	return &IdentityChain{
		resolvers: []IdentityResolver{
			AuthenticatedResolver{},
			&UserIDResolver{users: users},
			&EmailUpsertResolver{users: users, validator: v},
		},
		logger: logger,
	}
}

// Resolve returns the first resolved user id, or ErrMissingIdentity
func (c *IdentityChain) Resolve(ctx context.Context, claim IdentityClaim) (uuid.UUID, error) {
	for _, r := range c.resolvers {
		id, ok, err := r.Resolve(ctx, claim)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s identity: %w", r.Name(), err)
		}
		if ok {
			c.logger.WithFields(logrus.Fields{
				"resolver": r.Name(),
				"user_id":  id,
			}).Debug("Identity resolved")
			return id, nil
		}
	}
	return uuid.Nil, ErrMissingIdentity
}

// AuthenticatedResolver accepts the user id from a verified access token
type AuthenticatedResolver struct{}

func (AuthenticatedResolver) Name() string { return "authenticated" }

func (AuthenticatedResolver) Resolve(_ context.Context, claim IdentityClaim) (uuid.UUID, bool, error) {
	if claim.AuthenticatedUserID == nil || *claim.AuthenticatedUserID == uuid.Nil {
		return uuid.Nil, false, nil
	}
	return *claim.AuthenticatedUserID, true, nil
}

// UserIDResolver accepts a client-supplied user id that names an existing user
type UserIDResolver struct {
	users UserStore
}

func (*UserIDResolver) Name() string { return "user_id" }

func (r *UserIDResolver) Resolve(ctx context.Context, claim IdentityClaim) (uuid.UUID, bool, error) {
	if claim.UserID == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(claim.UserID)
	if err != nil {
		return uuid.Nil, false, nil
	}
	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		return uuid.Nil, false, err
	}
	if user == nil {
		return uuid.Nil, false, nil
	}
	return user.ID, true, nil
}

// EmailUpsertResolver finds or creates a guest user by customer email
type EmailUpsertResolver struct {
	users     UserStore
	validator *validator.Validator
}

func (*EmailUpsertResolver) Name() string { return "email_upsert" }

func (r *EmailUpsertResolver) Resolve(ctx context.Context, claim IdentityClaim) (uuid.UUID, bool, error) {
	if claim.Customer == nil {
		return uuid.Nil, false, nil
	}
	email := strings.ToLower(strings.TrimSpace(claim.Customer.Email))
	if email == "" {
		return uuid.Nil, false, nil
	}
	if !r.validator.Var(email, "email,max=160") {
		return uuid.Nil, false, nil
	}

	name := validator.SanitizeString(claim.Customer.Name)
	if name == "" {
		name = "Guest"
	}
	phone := validator.SanitizeString(claim.Customer.Phone)
	if phone == "" {
		phone = "N/A"
	}

	user, err := r.users.FindOrCreateByEmail(ctx, name, email, phone)
	if err != nil {
		return uuid.Nil, false, err
	}
	if user == nil {
		return uuid.Nil, false, errors.New("user store returned no user")
	}
	return user.ID, true, nil
}
