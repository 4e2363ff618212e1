package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"

	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/fulfillment"
	"github.com/relaypressapp/relaypress/internal/logging"
	"github.com/relaypressapp/relaypress/internal/observability"
)

type supplierOrderStore interface {
	GetByFulfillmentID(ctx context.Context, fulfillmentID string) (*db.Order, error)
	MarkFulfillmentAccepted(ctx context.Context, fulfillmentID string) (int64, error)
	MarkShipped(ctx context.Context, fulfillmentID, trackingNumber, carrier string) (int64, error)
}

// SupplierService applies verified manufacturer events to order state.
type SupplierService struct {
	orders      supplierOrderStore
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewSupplierService(orders supplierOrderStore, emailSender OrderEmailSender, logger *slog.Logger) *SupplierService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &SupplierService{
		orders:      orders,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *SupplierService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// HandleFulfillmentAccepted advances sent_to_supplier -> fulfillment_accepted.
// Events that match no order in that state are acknowledged and logged, not
// retried: duplicates and events for already-shipped orders arrive in normal
// operation.
func (s *SupplierService) HandleFulfillmentAccepted(ctx context.Context, event fulfillment.Event) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	affected, err := s.orders.MarkFulfillmentAccepted(ctx, event.FulfillmentID)
	if err != nil {
		return fmt.Errorf("failed to mark fulfillment accepted: %w", err)
	}
	if affected == 0 {
		logger.Warn("fulfillment.accepted matched no order awaiting acceptance", "fulfillment_id", event.FulfillmentID)
		meter.Count("supplier.accepted.unmatched", 1)
		return nil
	}

	meter.Count("order.fulfillment_accepted", 1)
	logger.Info("fulfillment accepted", "fulfillment_id", event.FulfillmentID)
	return nil
}

// HandleFulfillmentShipped moves an order to its terminal shipped state and
// records tracking details. Acceptance is not a prerequisite: some partners
// ship without ever sending an accepted event.
func (s *SupplierService) HandleFulfillmentShipped(ctx context.Context, event fulfillment.Event) error {
	span := sentry.StartSpan(
		ctx,
		"service.supplier.fulfillment_shipped",
		sentry.WithOpName("service.supplier"),
		sentry.WithDescription("HandleFulfillmentShipped"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	carrier := NormalizeCarrierName(event.Carrier)

	affected, err := s.orders.MarkShipped(ctx, event.FulfillmentID, event.TrackingNumber, carrier)
	if err != nil {
		return fmt.Errorf("failed to mark order shipped: %w", err)
	}
	if affected == 0 {
		logger.Warn("fulfillment.shipped matched no shippable order", "fulfillment_id", event.FulfillmentID)
		meter.Count("supplier.shipped.unmatched", 1)
		return nil
	}

	meter.Count("order.shipped", 1)
	span.Status = sentry.SpanStatusOK
	logger.Info("order shipped",
		"fulfillment_id", event.FulfillmentID,
		"tracking_number", event.TrackingNumber,
		"carrier", carrier,
	)

	s.sendShipmentNotification(ctx, event.FulfillmentID)
	return nil
}

func (s *SupplierService) sendShipmentNotification(ctx context.Context, fulfillmentID string) {
	logger := s.loggerFromContext(ctx)

	order, err := s.orders.GetByFulfillmentID(ctx, fulfillmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return
		}
		logger.Error("failed to load order for shipment notification", "error", err, "fulfillment_id", fulfillmentID)
		return
	}

	if err := s.emailSender.SendOrderShipped(ctx, order); err != nil {
		logger.Error("failed to send shipment notification email", "error", err, "order_id", order.ID)
	}
}
