package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/services"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		verr *services.ValidationError
		perr *services.ProviderError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request data",
			Fields:  verr.Fields,
		})
	case errors.Is(err, services.ErrMissingIdentity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_identity", Message: err.Error()})
	case errors.Is(err, services.ErrServiceUnavailable):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "service_unavailable", Message: err.Error()})
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_signature", Message: "Webhook signature verification failed"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, services.ErrQuoteMismatch):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "quote_mismatch", Message: err.Error()})
	case errors.Is(err, services.ErrBookingNotPayable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking_not_payable", Message: err.Error()})
	case errors.As(err, &perr):
		logger.WithError(err).WithFields(logrus.Fields{
			"provider":  perr.Provider,
			"op":        perr.Op,
			"status":    perr.StatusCode,
			"retryable": perr.Retryable,
		}).Error("Payment provider call failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     "provider_error",
			Message:   "Payment provider request failed",
			Code:      perr.Code,
			Retryable: perr.Retryable,
		})
	case errors.Is(err, context.DeadlineExceeded):
		logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Request timed out")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "timeout", Message: "Request timed out", Retryable: true})
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"})
	}
}

// respondBindError answers a body that could not be decoded
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Request body is not valid JSON for this endpoint: " + err.Error(),
	})
}
