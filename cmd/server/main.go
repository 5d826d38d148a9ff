package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/config"
	"github.com/tidyhome/booking-backend/internal/database"
	"github.com/tidyhome/booking-backend/internal/handlers"
	"github.com/tidyhome/booking-backend/internal/middleware"
	"github.com/tidyhome/booking-backend/internal/quotestore"
	"github.com/tidyhome/booking-backend/internal/services"
	"github.com/tidyhome/booking-backend/pkg/jwt"
	"github.com/tidyhome/booking-backend/pkg/mq"
	"github.com/tidyhome/booking-backend/pkg/obs"
	"github.com/tidyhome/booking-backend/pkg/payment"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	shutdownTracer, err := obs.InitTracer(context.Background(), cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, cfg.Server.Environment)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	quoteStore, err := newQuoteStore(cfg.Quotes, db)
	if err != nil {
		logger.Fatalf("Failed to open quote store: %v", err)
	}
	defer quoteStore.Close()
	logger.WithField("backend", cfg.Quotes.Store).Info("Quote store ready")

	var events mq.EventPublisher = mq.NopPublisher{}
	if cfg.Events.RabbitURL != "" {
		publisher, err := mq.NewPublisher(cfg.Events.RabbitURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to message broker: %v", err)
		}
		events = publisher
		logger.WithField("exchange", cfg.Events.Exchange).Info("Publishing booking events")
	}
	defer events.Close()

	// Repositories
	serviceRepository := database.NewServiceRepository(db.DB)
	userRepository := database.NewUserRepository(db.DB)
	bookingRepository := database.NewBookingRepository(db.DB)
	paymentRepository := database.NewPaymentRepository(db.DB)
	auditRepository := database.NewPaymentAuditRepository(db.DB, logger)

	// Providers
	stripeGateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.Payment.StripeSecretKey,
		WebhookSecret: cfg.Payment.StripeWebhookSecret,
		Timeout:       cfg.Payment.ProviderTimeout,
	}, logger)
	mercadoPagoGateway, err := payment.NewMercadoPagoGateway(payment.MercadoPagoConfig{
		AccessToken: cfg.Payment.MercadoPagoToken,
		Timeout:     cfg.Payment.ProviderTimeout,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to configure MercadoPago: %v", err)
	}

	// Services
	logger.Info("Initializing services...")
	requestValidator := services.NewRequestValidator()
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	quoteService := services.NewQuoteService(serviceRepository, quoteStore, requestValidator, cfg.Payment.Currency, cfg.Quotes.TTL, logger)
	bookingService := services.NewBookingService(services.BookingServiceConfig{
		Bookings:     bookingRepository,
		Catalog:      serviceRepository,
		Quotes:       quoteService,
		Identity:     services.NewIdentityChain(userRepository, requestValidator, logger),
		Validator:    requestValidator,
		Events:       events,
		StrictQuotes: cfg.Quotes.Strict,
		Logger:       logger,
	})
	userService := services.NewUserService(userRepository, jwtService, requestValidator, logger)
	paymentService := services.NewPaymentService(
		bookingRepository,
		quoteService,
		stripeGateway,
		mercadoPagoGateway,
		auditRepository,
		cfg.Payment.Currency,
		cfg.Payment.FrontendURL,
		logger,
	)
	webhookService := services.NewWebhookService(
		stripeGateway,
		mercadoPagoGateway,
		bookingRepository,
		paymentRepository,
		auditRepository,
		events,
		logger,
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		MaxRequests: cfg.Server.RateLimitMax,
		Window:      cfg.Server.RateLimitWindow,
	})

	cronService := services.NewCronService(quoteStore, cfg.Quotes.SweepSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Handlers
	quoteHandler := handlers.NewQuoteHandler(quoteService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	catalogHandler := handlers.NewCatalogHandler(serviceRepository, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	webhookHandler := handlers.NewWebhookHandler(webhookService, logger)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.CORS)))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	router.GET("/health", handlers.HealthCheck(db))

	// Provider callbacks: no session auth, no CORS preflight needed
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/card", webhookHandler.CardWebhook)
		webhooks.POST("/redirect", webhookHandler.RedirectWebhook)
	}

	api := router.Group("/api")
	api.Use(middleware.RateLimit(rateLimiter, logger))
	api.Use(middleware.OptionalAuth(jwtService))
	{
		api.GET("/health", handlers.HealthCheck(db))
		api.GET("/services", catalogHandler.ListServices)
		api.POST("/quote", quoteHandler.CreateQuote)

		api.POST("/bookings", bookingHandler.CreateBooking)
		api.GET("/bookings", bookingHandler.ListBookings)

		api.POST("/users", userHandler.UpsertUser)
		api.GET("/users/me", middleware.AuthMiddleware(jwtService), userHandler.GetMe)

		payments := api.Group("/payments")
		{
			payments.POST("/card/create-intent", paymentHandler.CreateCardIntent)
			payments.POST("/card/create-intent-from-quote", paymentHandler.CreateCardIntentFromQuote)
			payments.GET("/card/return", paymentHandler.CardReturn)
			payments.POST("/redirect/create-preference", paymentHandler.CreateRedirectPreference)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.Warnf("Tracer shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// newQuoteStore opens the configured quote backend
func newQuoteStore(cfg config.QuoteConfig, db *database.PostgresDB) (quotestore.Store, error) {
	switch cfg.Store {
	case "bolt":
		return quotestore.NewBoltStore(cfg.BoltPath)
	case "postgres":
		return quotestore.NewPostgresStore(db.DB), nil
	default:
		return quotestore.NewMemoryStore(), nil
	}
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = cfg.AllowedOrigins
	c.AllowCredentials = true
	return c
}
