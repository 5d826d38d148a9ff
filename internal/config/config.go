package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Payment  PaymentConfig
	Quotes   QuoteConfig
	Events   EventsConfig
	Tracing  TracingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"4000"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"` // development, staging, production
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Upper bound for one request, including database and provider calls
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"20s"`

	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"200"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`

	// Proxies (IPs or CIDRs) whose X-Forwarded-For / X-Real-IP headers are
	// trusted. Empty means the socket peer is the client.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string        `envconfig:"DATABASE_URL"`
	MaxConnections     int           `envconfig:"DATABASE_MAX_CONNECTIONS" default:"10"`
	MaxIdleConnections int           `envconfig:"DATABASE_MAX_IDLE_CONNECTIONS" default:"5"`
	ConnMaxLifetime    time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"5m"`
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string        `envconfig:"JWT_SECRET"`
	AccessTokenExpiry time.Duration `envconfig:"JWT_ACCESS_TOKEN_EXPIRY" default:"1h"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FRONTEND_ORIGIN" default:"*"`
	AllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,OPTIONS"`
	AllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Content-Type,Authorization,X-CSRF-Token"`
}

// PaymentConfig holds card and redirect provider configuration
type PaymentConfig struct {
	Currency            string        `envconfig:"PAYMENT_CURRENCY" default:"USD"`
	StripeSecretKey     string        `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string        `envconfig:"STRIPE_WEBHOOK_SECRET"` // signing secret, never exposed to clients
	MercadoPagoToken    string        `envconfig:"MP_ACCESS_TOKEN"`
	FrontendURL         string        `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	ProviderTimeout     time.Duration `envconfig:"PAYMENT_PROVIDER_TIMEOUT" default:"15s"`
}

// QuoteConfig holds quote pinning configuration
type QuoteConfig struct {
	TTL           time.Duration `envconfig:"QUOTE_TTL" default:"15m"`
	Store         string        `envconfig:"QUOTE_STORE" default:"memory"` // memory, bolt, postgres
	BoltPath      string        `envconfig:"QUOTE_BOLT_PATH" default:"quotes.db"`
	SweepSchedule string        `envconfig:"QUOTE_SWEEP_SCHEDULE" default:"@every 5m"`
	Strict        bool          `envconfig:"QUOTE_STRICT" default:"false"`
}

// EventsConfig holds domain event publishing configuration
type EventsConfig struct {
	RabbitURL string `envconfig:"RABBIT_URL"`
	Exchange  string `envconfig:"BOOKING_EXCHANGE" default:"booking.events"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"booking-backend"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	sections := []interface{}{
		&cfg.Server, &cfg.Database, &cfg.JWT, &cfg.CORS,
		&cfg.Payment, &cfg.Quotes, &cfg.Events, &cfg.Tracing,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Quotes.Store {
	case "memory", "bolt", "postgres":
	default:
		return fmt.Errorf("invalid QUOTE_STORE: %s (must be 'memory', 'bolt' or 'postgres')", c.Quotes.Store)
	}

	if c.Quotes.TTL <= 0 {
		return fmt.Errorf("QUOTE_TTL must be positive")
	}

	// Provider secrets are only mandatory in production
	if c.IsProduction() {
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in production mode")
		}
		if c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production mode")
		}
		if c.Payment.MercadoPagoToken == "" {
			return fmt.Errorf("MP_ACCESS_TOKEN is required in production mode")
		}
	}

	return nil
}
