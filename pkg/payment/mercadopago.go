package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/mercadopago/sdk-go/pkg/requester"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const providerMercadoPago = "mercadopago"

// MercadoPagoConfig configures the redirect gateway
type MercadoPagoConfig struct {
	AccessToken string
	Timeout     time.Duration
	// Requester overrides the HTTP client the SDK uses
	Requester requester.Requester
}

// MercadoPagoGateway creates checkout preferences and looks up payments
type MercadoPagoGateway struct {
	preferences preference.Client
	payments    mppayment.Client
	logger      *logrus.Logger
}

// NewMercadoPagoGateway creates a gateway on the MercadoPago SDK
func NewMercadoPagoGateway(cfg MercadoPagoConfig, logger *logrus.Logger) (*MercadoPagoGateway, error) {
	httpClient := cfg.Requester
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sdkConfig, err := config.New(cfg.AccessToken, config.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to configure mercadopago: %w", err)
	}

	return &MercadoPagoGateway{
		preferences: preference.NewClient(sdkConfig),
		payments:    mppayment.NewClient(sdkConfig),
		logger:      logger,
	}, nil
}

// CreatePreference creates a one-item checkout preference
func (g *MercadoPagoGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	unitPrice, _ := req.UnitPrice.Round(2).Float64()

	metadata := make(map[string]any, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	resp, err := g.preferences.Create(ctx, preference.Request{
		Items: []preference.ItemRequest{{
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  unitPrice,
			CurrencyID: strings.ToUpper(req.Currency),
		}},
		BackURLs: &preference.BackURLsRequest{
			Success: req.BackURLs.Success,
			Failure: req.BackURLs.Failure,
			Pending: req.BackURLs.Pending,
		},
		AutoReturn:        "approved",
		ExternalReference: req.Reference,
		Metadata:          metadata,
	})
	if err != nil {
		return nil, g.classify("create preference", err)
	}

	redirect := resp.InitPoint
	if redirect == "" {
		redirect = resp.SandboxInitPoint
	}

	g.logger.WithFields(logrus.Fields{
		"preference_id": resp.ID,
		"reference":     req.Reference,
	}).Info("MercadoPago preference created")

	return &Preference{ID: resp.ID, RedirectURL: redirect}, nil
}

// GetPayment fetches a payment by its provider id
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, id string) (*RedirectPayment, error) {
	paymentID, err := strconv.Atoi(id)
	if err != nil {
		return nil, &ProviderError{Provider: providerMercadoPago, Op: "get payment", Err: fmt.Errorf("invalid payment id %q", id)}
	}

	resp, err := g.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, g.classify("get payment", err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, &ProviderError{Provider: providerMercadoPago, Op: "get payment", Err: fmt.Errorf("failed to encode payment: %w", err)}
	}

	return &RedirectPayment{
		ID:                strconv.Itoa(resp.ID),
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
		Amount:            decimal.NewFromFloat(resp.TransactionAmount).Round(2),
		Currency:          strings.ToUpper(resp.CurrencyID),
		Raw:               raw,
	}, nil
}

// classify wraps an SDK error. API responses carry their status; anything
// else is a transport failure and worth retrying.
func (g *MercadoPagoGateway) classify(op string, err error) error {
	var apiErr *mperror.ResponseError
	if errors.As(err, &apiErr) {
		g.logger.WithFields(logrus.Fields{
			"op":          op,
			"status_code": apiErr.StatusCode,
			"body":        apiErr.Message,
		}).Warn("MercadoPago request failed")
		return &ProviderError{
			Provider:   providerMercadoPago,
			Op:         op,
			StatusCode: apiErr.StatusCode,
			Retryable:  retryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}
	return &ProviderError{Provider: providerMercadoPago, Op: op, Retryable: true, Err: err}
}
