package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/relaypressapp/relaypress/internal/fulfillment"
	"github.com/relaypressapp/relaypress/internal/logging"
	"github.com/relaypressapp/relaypress/internal/observability"
	"github.com/relaypressapp/relaypress/internal/services"
)

type ManufacturerEventRouter struct {
	service *services.SupplierService
	logger  *slog.Logger
}

func NewManufacturerEventRouter(service *services.SupplierService, logger *slog.Logger) *ManufacturerEventRouter {
	return &ManufacturerEventRouter{
		service: service,
		logger:  logger,
	}
}

func (r *ManufacturerEventRouter) Handle(ctx context.Context, event *fulfillment.Event) error {
	span := sentry.StartSpan(
		ctx,
		"handler.manufacturer_router.handle",
		sentry.WithOpName("handler.manufacturer_router"),
		sentry.WithDescription("ManufacturerEventRouter.Handle"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.provider", "manufacturer"))
	meter.Count("webhook.router.received", 1)
	recordFailed := func(reason string) {
		meter.Count("webhook.router.failed", 1, sentry.WithAttributes(attribute.String("reason", reason)))
	}

	if event == nil {
		recordFailed("missing_event")
		return fmt.Errorf("missing manufacturer event")
	}
	meter.SetAttributes(attribute.String("webhook.event_type", string(event.Type)))

	logger := logging.FromContext(ctx, r.logger)

	switch event.Type {
	case fulfillment.EventFulfillmentAccepted:
		if err := r.service.HandleFulfillmentAccepted(ctx, *event); err != nil {
			recordFailed("fulfillment_accepted_failed")
			return err
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	case fulfillment.EventFulfillmentShipped:
		if err := r.service.HandleFulfillmentShipped(ctx, *event); err != nil {
			recordFailed("fulfillment_shipped_failed")
			return err
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	default:
		logger.Info("unhandled manufacturer event type", "type", event.Type)
		meter.Count("webhook.router.unhandled", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	}
}
