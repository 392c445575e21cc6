package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/obralink/backend/internal"
	"github.com/obralink/backend/internal/billing"
	"github.com/obralink/backend/internal/catalog"
	"github.com/obralink/backend/internal/coupon"
	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/handler"
	"github.com/obralink/backend/internal/handler/webhook"
	"github.com/obralink/backend/internal/metadata"
	"github.com/obralink/backend/internal/middleware"
	"github.com/obralink/backend/internal/postgres"
	"github.com/obralink/backend/internal/router"
	"github.com/obralink/backend/internal/routes"
	"github.com/obralink/backend/internal/service"
	"github.com/obralink/backend/internal/storage"
	"github.com/obralink/backend/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry error tracking
	sentryCleanup, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentryCleanup()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize store
	store := postgres.NewStore(pool)

	// Initialize receipt file storage
	logger.Info("Initializing file storage...", "provider", cfg.Storage.Provider)
	files, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	// Initialize payment providers. The codec map must stay aligned
	// with the providers map: each provider's checkout references are
	// decoded with the codec that encoded them.
	logger.Info("Initializing payment providers...")
	providers := map[string]billing.Provider{
		domain.ProviderMercadoPago: billing.NewMercadoPago(billing.MercadoPagoConfig{
			AccessToken: cfg.MercadoPago.AccessToken,
			BaseURL:     cfg.MercadoPago.BaseURL,
		}),
		domain.ProviderPayPal: billing.NewPayPal(billing.PayPalConfig{
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			BaseURL:      cfg.PayPal.BaseURL,
		}),
	}
	codecs := map[string]metadata.Codec{
		domain.ProviderMercadoPago: metadata.Delimited{},
		domain.ProviderPayPal:      metadata.Compact{MaxLen: 127},
	}

	// Initialize business metrics
	businessMetrics := telemetry.NewBusinessMetrics("obralink")

	// Initialize services
	pricing := catalog.NewResolver(store)
	coupons := coupon.NewValidator(store)
	authz := service.NewAuthorizer(store)
	fulfiller := service.NewFulfiller(store, logger)

	checkoutService := service.NewCheckoutService(
		store,
		pricing,
		coupons,
		authz,
		providers,
		codecs,
		service.CheckoutURLs{
			BaseURL:       cfg.BaseURL,
			WebhookSecret: cfg.WebhookSecret,
		},
		businessMetrics,
		logger,
	)

	captureService := service.NewCaptureService(
		store,
		providers,
		codecs,
		fulfiller,
		businessMetrics,
		logger,
	)

	transferService := service.NewTransferService(store, files, businessMetrics, logger)

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	apiDeps := routes.APIDeps{
		CheckoutHandler: handler.NewCheckoutHandler(checkoutService),
		TransferHandler: handler.NewTransferHandler(transferService),
		PaymentsHandler: handler.NewPaymentsHandler(store),
	}

	paymentDeps := routes.PaymentDeps{
		CaptureHandler: handler.NewCaptureHandler(captureService, logger),
	}

	mpWebhook := webhook.NewMercadoPagoHandler(captureService, cfg.WebhookSecret, businessMetrics, logger)
	ppWebhook := webhook.NewPayPalHandler(captureService, cfg.WebhookSecret, businessMetrics, logger)
	webhookDeps := routes.WebhookDeps{
		MercadoPagoHandler: mpWebhook.HandleWebhook,
		PayPalHandler:      ppWebhook.HandleWebhook,
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	// Initialize Prometheus HTTP metrics
	metrics := middleware.NewMetrics("obralink")

	systemDeps := routes.SystemDeps{
		Healthz:        handler.Healthz(pool),
		MetricsHandler: metrics.Handler(),
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		router.Logger(logger),
		middleware.WithUser(store),
		middleware.WithRequestLogger(logger),
	)

	routes.RegisterAPIRoutes(r, apiDeps)
	routes.RegisterPaymentRoutes(r, paymentDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)
	routes.RegisterSystemRoutes(r, systemDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr, "env", cfg.Env)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
