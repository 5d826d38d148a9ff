package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/middleware"
	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/services"
)

// UserRegistry registers and loads customers
type UserRegistry interface {
	UpsertUser(ctx context.Context, req services.UserRequest) (*models.User, string, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserHandler handles user requests
type UserHandler struct {
	users  UserRegistry
	logger *logrus.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserRegistry, logger *logrus.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// UserResponse is a user plus an access token for later requests
type UserResponse struct {
	*models.User
	AccessToken string `json:"accessToken"`
}

// UpsertUser handles POST /api/users
func (h *UserHandler) UpsertUser(c *gin.Context) {
	var req services.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, token, err := h.users.UpsertUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, UserResponse{User: user, AccessToken: token})
}

// GetMe handles GET /api/users/me (requires AuthMiddleware)
func (h *UserHandler) GetMe(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "User context not found"})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
