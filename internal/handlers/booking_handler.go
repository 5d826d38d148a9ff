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

// BookingLedger creates and lists bookings
type BookingLedger interface {
	CreateBooking(ctx context.Context, authUserID *uuid.UUID, req services.BookingRequest) (*models.BookingSummary, error)
	ListBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingSummary, error)
}

// BookingHandler handles booking requests
type BookingHandler struct {
	bookings BookingLedger
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingLedger, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req services.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	summary, err := h.bookings.CreateBooking(c.Request.Context(), middleware.AuthenticatedUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// ListBookings handles GET /api/bookings?userId=
// An authenticated caller without userId gets their own bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	raw := c.Query("userId")
	if raw == "" {
		if id := middleware.AuthenticatedUserID(c); id != nil {
			raw = id.String()
		}
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_user_id", Message: "userId is required"})
		return
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid userId format"})
		return
	}

	bookings, err := h.bookings.ListBookings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []models.BookingSummary{}
	}

	c.JSON(http.StatusOK, bookings)
}
