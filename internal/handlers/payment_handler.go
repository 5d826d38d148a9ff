package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
)

// PaymentBridge creates provider charges for bookings and quotes
type PaymentBridge interface {
	CreateCardIntent(ctx context.Context, bookingID uuid.UUID) (*models.CardIntent, error)
	CreateCardIntentFromQuote(ctx context.Context, quoteID string) (*models.CardIntent, error)
	CreateRedirectPreference(ctx context.Context, bookingID uuid.UUID) (*models.RedirectPreference, error)
	CardReturnURL(ctx context.Context, intentID, bookingID string) (string, error)
	FailurePage(reason string) string
}

// PaymentHandler handles payment requests. Request bodies carry only
// references; amounts are never read from the client.
type PaymentHandler struct {
	payments PaymentBridge
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentBridge, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// BookingPaymentRequest is the body of the booking-based payment endpoints
type BookingPaymentRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
}

// QuotePaymentRequest is the body of the quote-first card endpoint
type QuotePaymentRequest struct {
	QuoteID string `json:"quoteId" binding:"required,uuid"`
}

// CreateCardIntent handles POST /api/payments/card/create-intent
func (h *PaymentHandler) CreateCardIntent(c *gin.Context) {
	bookingID, ok := h.bindBookingID(c)
	if !ok {
		return
	}

	intent, err := h.payments.CreateCardIntent(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, intent)
}

// CreateCardIntentFromQuote handles POST /api/payments/card/create-intent-from-quote
func (h *PaymentHandler) CreateCardIntentFromQuote(c *gin.Context) {
	var req QuotePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	intent, err := h.payments.CreateCardIntentFromQuote(c.Request.Context(), req.QuoteID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, intent)
}

// CreateRedirectPreference handles POST /api/payments/redirect/create-preference
func (h *PaymentHandler) CreateRedirectPreference(c *gin.Context) {
	bookingID, ok := h.bindBookingID(c)
	if !ok {
		return
	}

	pref, err := h.payments.CreateRedirectPreference(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, pref)
}

// CardReturn handles GET /api/payments/card/return, the page the card
// provider sends the browser back to after confirmation
func (h *PaymentHandler) CardReturn(c *gin.Context) {
	target, err := h.payments.CardReturnURL(c.Request.Context(), c.Query("payment_intent"), c.Query("booking_id"))
	if err != nil {
		h.logger.WithError(err).WithField("payment_intent", c.Query("payment_intent")).Warn("Card return lookup failed")
		target = h.payments.FailurePage("lookup_failed")
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *PaymentHandler) bindBookingID(c *gin.Context) (uuid.UUID, bool) {
	var req BookingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.BookingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid bookingId format"})
		return uuid.Nil, false
	}
	return id, true
}
