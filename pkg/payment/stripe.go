package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const providerStripe = "stripe"

// StripeConfig configures the card gateway
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	// BaseURL overrides the API endpoint (stripe-mock, tests)
	BaseURL string
}

// StripeGateway creates PaymentIntents and verifies Stripe webhooks
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *logrus.Logger
}

// NewStripeGateway creates a gateway with network retries disabled
func NewStripeGateway(cfg StripeConfig, logger *logrus.Logger) *StripeGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// GetBackendWithConfig fills in URL, so each backend gets its own config
	backendConfig := func() *stripe.BackendConfig {
		c := &stripe.BackendConfig{
			HTTPClient:        &http.Client{Timeout: timeout},
			LeveledLogger:     logger,
			MaxNetworkRetries: stripe.Int64(0),
		}
		if cfg.BaseURL != "" {
			c.URL = stripe.String(cfg.BaseURL)
		}
		return c
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig()),
	})

	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CreateIntent creates a PaymentIntent for exactly req.Amount minor units
func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, &ProviderError{Provider: providerStripe, Op: "create intent", Err: fmt.Errorf("amount must be positive, got %d", req.Amount)}
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError("create intent", err)
	}

	g.logger.WithFields(logrus.Fields{
		"payment_intent": pi.ID,
		"amount":         pi.Amount,
		"currency":       pi.Currency,
	}).Info("Stripe payment intent created")

	return intentFromStripe(pi), nil
}

// RetrieveIntent fetches a PaymentIntent by id
func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, classifyStripeError("retrieve intent", err)
	}
	return intentFromStripe(pi), nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw body
// and decodes the event. Any verification failure is ErrInvalidSignature.
func (g *StripeGateway) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent from event %s: %w", event.ID, err)
		}
		intent := intentFromStripe(&pi)
		intent.Raw = event.Data.Raw
		out.Intent = intent
	}
	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:             pi.ID,
		ClientSecret:   pi.ClientSecret,
		Amount:         pi.Amount,
		AmountReceived: pi.AmountReceived,
		Currency:       strings.ToUpper(string(pi.Currency)),
		Status:         string(pi.Status),
		Metadata:       pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		intent.FailureCode = string(pi.LastPaymentError.Code)
		intent.FailureReason = string(pi.LastPaymentError.DeclineCode)
	}
	return intent
}

func classifyStripeError(op string, err error) error {
	pe := &ProviderError{Provider: providerStripe, Op: op, Err: err}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		pe.StatusCode = stripeErr.HTTPStatusCode
		pe.Code = string(stripeErr.Code)
		pe.Retryable = retryableStatus(stripeErr.HTTPStatusCode)
		return pe
	}

	// No API response: transport failure or timeout
	pe.Retryable = true
	return pe
}
