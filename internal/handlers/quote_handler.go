package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/internal/services"
)

// QuoteCreator creates pinned quotes
type QuoteCreator interface {
	CreateQuote(ctx context.Context, req services.QuoteRequest) (*models.Quote, error)
}

// QuoteHandler handles quote requests
type QuoteHandler struct {
	quotes QuoteCreator
	logger *logrus.Logger
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteCreator, logger *logrus.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// QuoteResponse is the reply to POST /api/quote. Amount is in minor units.
type QuoteResponse struct {
	QuoteID    string `json:"quoteId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

// CreateQuote handles POST /api/quote
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req services.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.quotes.CreateQuote(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		QuoteID:    quote.ID,
		Amount:     quote.Amount,
		Currency:   quote.Currency,
		TTLSeconds: int64(quote.TTL() / time.Second),
	})
}
