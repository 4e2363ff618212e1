package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/logging"
	"github.com/relaypressapp/relaypress/internal/observability"
	"github.com/relaypressapp/relaypress/internal/stripe"
)

// ErrEmptyCart is returned when the cart is empty or no item references an
// active product.
var ErrEmptyCart = errors.New("cart has no resolvable items")

// ErrPaymentGateway marks a failure to create the payment session. The order
// is already persisted as pending with no session id; the caller may retry.
var ErrPaymentGateway = errors.New("payment gateway unavailable")

type productReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]db.Product, error)
}

type orderCreator interface {
	Create(ctx context.Context, order *db.Order, items []db.LineItem) error
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
}

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

type CheckoutService struct {
	products productReader
	orders   orderCreator
	gateway  checkoutGateway
	baseURL  string
	currency string
	logger   *slog.Logger
}

func NewCheckoutService(products productReader, orders orderCreator, gateway checkoutGateway, baseURL, currency string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		products: products,
		orders:   orders,
		gateway:  gateway,
		baseURL:  baseURL,
		currency: currency,
		logger:   logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CheckoutInput struct {
	Email string
	Items []CheckoutItem
}

type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CheckoutResult struct {
	OrderID     uuid.UUID
	TotalCents  int
	RedirectURL string
	SessionID   string
}

// Checkout creates a pending order with a price snapshot of the resolvable
// cart items and opens a payment session for the computed total. Cart entries
// referencing unknown or inactive products are dropped; the returned total
// shows the caller what was actually ordered.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.checkout",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Checkout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("checkout.received", 1)
	recordFailure := func(reason string) {
		meter.Count("checkout.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if input.Email == "" {
		recordFailure("missing_email")
		return nil, fmt.Errorf("email is required")
	}
	if len(input.Items) == 0 {
		recordFailure("empty_cart")
		return nil, ErrEmptyCart
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			recordFailure("invalid_quantity")
			return nil, fmt.Errorf("quantity must be positive for product %s", item.ProductID)
		}
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		recordFailure("product_lookup_failed")
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}

	var (
		lineItems []db.LineItem
		total     int
	)
	for _, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok {
			logger.Warn("dropping cart item for unknown product", "product_id", item.ProductID)
			continue
		}
		lineItems = append(lineItems, db.LineItem{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Title:          product.Title,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		})
		total += product.PriceCents * item.Quantity
	}

	if len(lineItems) == 0 {
		recordFailure("no_resolvable_items")
		return nil, ErrEmptyCart
	}

	order := &db.Order{
		Email:      input.Email,
		TotalCents: total,
		Currency:   s.currency,
		Status:     db.StatusPending,
	}
	if err := s.orders.Create(ctx, order, lineItems); err != nil {
		recordFailure("order_create_failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	meter.Count("order.created", 1)

	checkoutItems := make([]stripe.CheckoutLineItem, 0, len(lineItems))
	for _, item := range lineItems {
		checkoutItems = append(checkoutItems, stripe.CheckoutLineItem{
			Title:          item.Title,
			UnitPriceCents: int64(item.UnitPriceCents),
			Quantity:       int64(item.Quantity),
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		OrderID:       order.ID,
		CustomerEmail: input.Email,
		Currency:      s.currency,
		Items:         checkoutItems,
		SuccessURL:    fmt.Sprintf("%s/orders/%s?checkout=success", s.baseURL, order.ID),
		CancelURL:     fmt.Sprintf("%s/orders/%s?checkout=cancelled", s.baseURL, order.ID),
	})
	if err != nil {
		recordFailure("checkout_session_failed")
		logger.Error("failed to create checkout session", "error", err, "order_id", order.ID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if err := s.orders.SetStripeSession(ctx, order.ID, session.ID); err != nil {
		recordFailure("session_persist_failed")
		return nil, fmt.Errorf("failed to record session id: %w", err)
	}
	meter.Count("checkout.session.created", 1)

	return &CheckoutResult{
		OrderID:     order.ID,
		TotalCents:  total,
		RedirectURL: session.URL,
		SessionID:   session.ID,
	}, nil
}
