package services

import (
	"context"
	"fmt"
	"time"

	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/email"
)

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *db.Order, items []db.LineItem) error
	SendOrderShipped(ctx context.Context, order *db.Order) error
}

// ProviderOrderEmailSender renders lifecycle emails and delivers them through
// a single configured provider.
type ProviderOrderEmailSender struct {
	provider email.Provider
}

func NewProviderOrderEmailSender(provider email.Provider) *ProviderOrderEmailSender {
	return &ProviderOrderEmailSender{provider: provider}
}

func (s *ProviderOrderEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order, items []db.LineItem) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	info := &email.OrderInfo{
		OrderID:       order.ID.String(),
		CustomerEmail: order.Email,
		Total:         formatAmount(order.TotalCents, order.Currency),
		OrderDate:     order.CreatedAt.Format(time.DateOnly),
	}
	for _, item := range items {
		info.Items = append(info.Items, email.OrderItem{
			Title:     item.Title,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: formatAmount(item.UnitPriceCents, order.Currency),
		})
	}

	msg, err := email.RenderOrderConfirmation(info)
	if err != nil {
		return err
	}
	return s.provider.SendEmail(ctx, msg)
}

func (s *ProviderOrderEmailSender) SendOrderShipped(ctx context.Context, order *db.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	info := &email.ShipmentInfo{
		OrderID:        order.ID.String(),
		CustomerEmail:  order.Email,
		Carrier:        order.Carrier,
		TrackingNumber: order.TrackingNumber,
		TrackingURL:    BuildTrackingURL(order.Carrier, order.TrackingNumber),
	}

	msg, err := email.RenderShipmentNotification(info)
	if err != nil {
		return err
	}
	return s.provider.SendEmail(ctx, msg)
}

func formatAmount(cents int, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *db.Order, []db.LineItem) error {
	return nil
}

func (noopOrderEmailSender) SendOrderShipped(context.Context, *db.Order) error {
	return nil
}
