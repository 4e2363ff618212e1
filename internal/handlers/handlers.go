// Package handlers provides the HTTP surface of the relay: the storefront
// JSON API and the inbound webhook endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"

	"github.com/relaypressapp/relaypress/internal/cache"
	"github.com/relaypressapp/relaypress/internal/config"
	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/logging"
	"github.com/relaypressapp/relaypress/internal/services"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

type orderReader interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	GetLineItems(ctx context.Context, orderID uuid.UUID) ([]db.LineItem, error)
}

type productLister interface {
	ListActive(ctx context.Context) ([]db.Product, error)
}

type auditLog interface {
	Append(ctx context.Context, source, eventType string, payload []byte, orderID *uuid.UUID) error
}

type checkoutRunner interface {
	Checkout(ctx context.Context, input services.CheckoutInput) (*services.CheckoutResult, error)
}

// Handlers provides HTTP request handlers for the relay API.
type Handlers struct {
	config             *config.Config
	db                 *pgxpool.Pool
	orderStore         orderReader
	productStore       productLister
	eventStore         auditLog
	cacheProvider      cache.Provider
	checkoutService    checkoutRunner
	stripeRouter       *StripeEventRouter
	manufacturerRouter *ManufacturerEventRouter
	logger             *slog.Logger
}

type Dependencies struct {
	Config             *config.Config
	DB                 *pgxpool.Pool
	OrderStore         orderReader
	ProductStore       productLister
	EventStore         auditLog
	CacheProvider      cache.Provider
	CheckoutService    checkoutRunner
	StripeRouter       *StripeEventRouter
	ManufacturerRouter *ManufacturerEventRouter
	Logger             *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.OrderStore == nil {
		return nil, fmt.Errorf("handlers dependencies: orderStore is required")
	}
	if deps.ProductStore == nil {
		return nil, fmt.Errorf("handlers dependencies: productStore is required")
	}
	if deps.EventStore == nil {
		return nil, fmt.Errorf("handlers dependencies: eventStore is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.StripeRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: stripeRouter is required")
	}
	if deps.ManufacturerRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: manufacturerRouter is required")
	}

	return &Handlers{
		config:             deps.Config,
		db:                 deps.DB,
		orderStore:         deps.OrderStore,
		productStore:       deps.ProductStore,
		eventStore:         deps.EventStore,
		cacheProvider:      deps.CacheProvider,
		checkoutService:    deps.CheckoutService,
		stripeRouter:       deps.StripeRouter,
		manufacturerRouter: deps.ManufacturerRouter,
		logger:             logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}
