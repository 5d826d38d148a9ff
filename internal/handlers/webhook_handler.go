package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxWebhookBody caps provider notification bodies
const maxWebhookBody = 1 << 20

// WebhookReconciler applies provider notifications
type WebhookReconciler interface {
	HandleCardEvent(ctx context.Context, payload []byte, signatureHeader string) error
	HandleRedirectNotification(ctx context.Context, topic, paymentID string) error
}

// WebhookHandler receives provider callbacks. These routes carry no session
// auth; the card route is authenticated by its signature and the redirect
// route only ever triggers a re-query of the provider.
type WebhookHandler struct {
	webhooks WebhookReconciler
	logger   *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhooks WebhookReconciler, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// CardWebhook handles POST /webhooks/card. The body must reach signature
// verification byte-for-byte, so it is read raw.
func (h *WebhookHandler) CardWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Failed to read webhook body"})
		return
	}

	if err := h.webhooks.HandleCardEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// redirectNotification is the subset of a redirect provider notification
// needed to find the payment. Nothing else in it is trusted.
type redirectNotification struct {
	Topic string     `json:"topic"`
	Type  string     `json:"type"`
	ID    flexibleID `json:"id"`
	Data  struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// flexibleID accepts both JSON strings and numbers
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		s = n.String()
	}
	*f = flexibleID(s)
	return nil
}

// RedirectWebhook handles POST /webhooks/redirect. Topic and id are taken
// from the query string first, then from the body.
func (h *WebhookHandler) RedirectWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	var note redirectNotification
	if raw, err := c.GetRawData(); err == nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &note); err != nil {
			h.logger.WithError(err).Warn("Redirect notification body is not JSON, using query only")
		}
	}

	topic := firstNonEmpty(c.Query("topic"), c.Query("type"), note.Topic, note.Type)
	id := firstNonEmpty(c.Query("id"), c.Query("data.id"), string(note.Data.ID), string(note.ID))

	if err := h.webhooks.HandleRedirectNotification(c.Request.Context(), topic, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
