package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaypressapp/relaypress/internal/cache"
	"github.com/relaypressapp/relaypress/internal/catalog"
	"github.com/relaypressapp/relaypress/internal/config"
	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/email"
	"github.com/relaypressapp/relaypress/internal/fulfillment"
	"github.com/relaypressapp/relaypress/internal/handlers"
	"github.com/relaypressapp/relaypress/internal/services"
	"github.com/relaypressapp/relaypress/internal/stripe"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	productStore := db.NewProductStore(database)
	eventStore := db.NewPaymentEventStore(database)

	if cfg.CatalogFile != "" {
		count, err := catalog.Sync(startupCtx, productStore, cfg.CatalogFile)
		if err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to sync catalog: %w", err)
		}
		logger.Info("catalog synced", "file", cfg.CatalogFile, "products", count)
	}

	stripeClient := stripe.NewClient(cfg.StripeSecretKey)
	manufacturerClient := fulfillment.NewClient(cfg.ManufacturerAPIKey, cfg.ManufacturerAPIURL)

	var emailSender services.OrderEmailSender
	if cfg.EmailEnabled() {
		emailSender = services.NewProviderOrderEmailSender(
			email.NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom))
	} else {
		logger.Info("order emails disabled; RESEND_API_KEY or EMAIL_FROM not set")
	}

	checkoutService := services.NewCheckoutService(
		productStore,
		orderStore,
		stripeClient,
		cfg.BaseURL,
		cfg.Currency,
		logger.With("component", "checkout_service"),
	)
	paymentService := services.NewPaymentService(
		orderStore,
		manufacturerClient,
		emailSender,
		logger.With("component", "payment_service"),
	)
	supplierService := services.NewSupplierService(
		orderStore,
		emailSender,
		logger.With("component", "supplier_service"),
	)

	stripeRouter := handlers.NewStripeEventRouter(paymentService, logger.With("component", "stripe_router"))
	manufacturerRouter := handlers.NewManufacturerEventRouter(supplierService, logger.With("component", "manufacturer_router"))

	h, err := handlers.New(handlers.Dependencies{
		Config:             cfg,
		DB:                 database,
		OrderStore:         orderStore,
		ProductStore:       productStore,
		EventStore:         eventStore,
		CacheProvider:      cacheProvider,
		CheckoutService:    checkoutService,
		StripeRouter:       stripeRouter,
		ManufacturerRouter: manufacturerRouter,
		Logger:             logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	default:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
