package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/fulfillment"
	"github.com/relaypressapp/relaypress/internal/logging"
	"github.com/relaypressapp/relaypress/internal/observability"
)

type paymentOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	GetLineItems(ctx context.Context, orderID uuid.UUID) ([]db.LineItem, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string, shippingAddress map[string]any) error
	MarkSentToSupplier(ctx context.Context, orderID uuid.UUID, fulfillmentID string) error
	MarkExpired(ctx context.Context, orderID uuid.UUID) error
}

type fulfillmentSubmitter interface {
	SubmitOrder(ctx context.Context, req fulfillment.SubmitOrderRequest) (string, error)
}

// PaymentService applies verified Stripe events to order state.
type PaymentService struct {
	orders      paymentOrderStore
	factory     fulfillmentSubmitter
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewPaymentService(orders paymentOrderStore, factory fulfillmentSubmitter, emailSender OrderEmailSender, logger *slog.Logger) *PaymentService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &PaymentService{
		orders:      orders,
		factory:     factory,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *PaymentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type checkoutSessionPayload struct {
	stripeapi.CheckoutSession
	ShippingDetails *stripeapi.ShippingDetails `json:"shipping_details"`
}

// HandleCheckoutSessionCompleted moves an order pending -> paid, forwards it
// to the manufacturer, and on success moves it paid -> sent_to_supplier.
// Duplicate deliveries are state no-ops: the conditional update loses and the
// fulfillment push is skipped. A failed forward leaves the order paid; there
// is no in-call retry.
func (s *PaymentService) HandleCheckoutSessionCompleted(ctx context.Context, payload []byte) error {
	span := sentry.StartSpan(
		ctx,
		"service.payment.checkout_session_completed",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("HandleCheckoutSessionCompleted"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	var session checkoutSessionPayload
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}

	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	orderID, ok := orderIDFromMetadata(session.Metadata)
	if !ok {
		logger.Info("checkout session completed without order correlation; ignoring", "session_id", session.ID)
		meter.Count("payment.completed.uncorrelated", 1)
		return nil
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	shippingAddress := buildShippingAddress(session.ShippingDetails, session.CustomerDetails)

	if markErr := s.orders.MarkPaid(ctx, orderID, paymentIntentID, shippingAddress); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring checkout.session.completed due to state transition", "order_id", orderID, "session_id", session.ID, "error", markErr)
			meter.Count("payment.completed.duplicate", 1)
			return nil
		}
		return fmt.Errorf("failed to mark order as paid: %w", markErr)
	}
	meter.Count("order.paid", 1)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	items, err := s.orders.GetLineItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get line items: %w", err)
	}

	s.sendOrderConfirmationEmail(ctx, order, items)

	fulfillmentID, err := s.factory.SubmitOrder(ctx, buildFulfillmentRequest(order, items, session.ShippingDetails, shippingAddress))
	if err != nil {
		// The order stays paid; remediation is external, the webhook is still acknowledged.
		logger.Error("failed to forward order to manufacturer", "error", err, "order_id", orderID)
		meter.Count("fulfillment.submit.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "submit_failed"),
		))
		return nil
	}

	if markErr := s.orders.MarkSentToSupplier(ctx, orderID, fulfillmentID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("order advanced concurrently after fulfillment submit", "order_id", orderID, "fulfillment_id", fulfillmentID, "error", markErr)
			return nil
		}
		return fmt.Errorf("failed to mark order as sent to supplier: %w", markErr)
	}
	meter.Count("order.sent_to_supplier", 1)
	span.Status = sentry.SpanStatusOK

	logger.Info("order forwarded to manufacturer", "order_id", orderID, "fulfillment_id", fulfillmentID)
	return nil
}

// HandleCheckoutSessionExpired terminates a pending order whose checkout
// session lapsed. Orders already paid are untouched.
func (s *PaymentService) HandleCheckoutSessionExpired(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var session checkoutSessionPayload
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}

	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	orderID, ok := orderIDFromMetadata(session.Metadata)
	if !ok {
		logger.Info("checkout session expired without order correlation; ignoring", "session_id", session.ID)
		return nil
	}

	if markErr := s.orders.MarkExpired(ctx, orderID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring checkout.session.expired due to state transition", "order_id", orderID, "session_id", session.ID, "error", markErr)
			return nil
		}
		return fmt.Errorf("failed to mark order as expired: %w", markErr)
	}

	logger.Info("checkout session expired handled", "order_id", orderID, "session_id", session.ID)
	return nil
}

func (s *PaymentService) sendOrderConfirmationEmail(ctx context.Context, order *db.Order, items []db.LineItem) {
	if err := s.emailSender.SendOrderConfirmation(ctx, order, items); err != nil {
		s.loggerFromContext(ctx).Error("failed to send order confirmation email", "error", err, "order_id", order.ID)
	}
}

// orderIDFromMetadata extracts the order correlation id a checkout session
// was tagged with at creation time.
func orderIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	if metadata == nil {
		return uuid.Nil, false
	}

	raw, ok := metadata["order_id"]
	if !ok || raw == "" {
		return uuid.Nil, false
	}

	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return orderID, true
}

func buildShippingAddress(details *stripeapi.ShippingDetails, customerDetails *stripeapi.CheckoutSessionCustomerDetails) map[string]any {
	var address *stripeapi.Address
	if details != nil && details.Address != nil {
		address = details.Address
	} else if customerDetails != nil && customerDetails.Address != nil {
		address = customerDetails.Address
	}
	if address == nil {
		return nil
	}

	return map[string]any{
		"line1":       address.Line1,
		"line2":       address.Line2,
		"city":        address.City,
		"state":       address.State,
		"postal_code": address.PostalCode,
		"country":     address.Country,
	}
}

// buildFulfillmentRequest maps a paid order onto the manufacturer's order
// contract. Address fields are present but empty when Stripe collected no
// shipping details.
func buildFulfillmentRequest(order *db.Order, items []db.LineItem, details *stripeapi.ShippingDetails, shippingAddress map[string]any) fulfillment.SubmitOrderRequest {
	req := fulfillment.SubmitOrderRequest{
		OrderID: order.ID.String(),
		Email:   order.Email,
	}

	for _, item := range items {
		req.Items = append(req.Items, fulfillment.OrderItem{
			SKU:      item.SKU,
			Quantity: item.Quantity,
		})
	}

	if details != nil {
		req.ShippingAddress.Name = details.Name
	}
	if shippingAddress != nil {
		req.ShippingAddress.Line1 = stringField(shippingAddress, "line1")
		req.ShippingAddress.Line2 = stringField(shippingAddress, "line2")
		req.ShippingAddress.City = stringField(shippingAddress, "city")
		req.ShippingAddress.State = stringField(shippingAddress, "state")
		req.ShippingAddress.PostalCode = stringField(shippingAddress, "postal_code")
		req.ShippingAddress.Country = stringField(shippingAddress, "country")
	}

	return req
}

func stringField(m map[string]any, key string) string {
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}
