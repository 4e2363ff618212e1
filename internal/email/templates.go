package email

import (
	"bytes"
	"fmt"
	"text/template"
)

// OrderInfo carries the fields the order email templates render.
type OrderInfo struct {
	OrderID       string
	CustomerEmail string
	Items         []OrderItem
	Total         string
	OrderDate     string
}

type OrderItem struct {
	Title     string
	SKU       string
	Quantity  int
	UnitPrice string
}

// ShipmentInfo carries the fields the shipment notification renders.
type ShipmentInfo struct {
	OrderID        string
	CustomerEmail  string
	Carrier        string
	TrackingNumber string
	TrackingURL    string
}

const orderConfirmationText = `Thanks for your order!

Order {{.OrderID}} ({{.OrderDate}})

{{range .Items}}  {{.Quantity}} x {{.Title}} ({{.SKU}}) at {{.UnitPrice}} each
{{end}}
Total: {{.Total}}

We've sent your order to production and will email you again when it ships.
`

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(orderConfirmationText))

// RenderOrderConfirmation builds the confirmation email for a paid order.
func RenderOrderConfirmation(info *OrderInfo) (*Email, error) {
	if info == nil {
		return nil, fmt.Errorf("order info is required")
	}

	var buf bytes.Buffer
	if err := orderConfirmationTmpl.Execute(&buf, info); err != nil {
		return nil, fmt.Errorf("failed to render order confirmation: %w", err)
	}

	return &Email{
		To:      info.CustomerEmail,
		Subject: fmt.Sprintf("Order confirmed: %s", info.OrderID),
		Text:    buf.String(),
	}, nil
}

const shipmentNotificationText = `Good news! Your order has shipped.

Order {{.OrderID}}
Carrier: {{.Carrier}}
Tracking number: {{.TrackingNumber}}
{{if .TrackingURL}}Track it here: {{.TrackingURL}}
{{end}}`

var shipmentNotificationTmpl = template.Must(template.New("shipment_notification").Parse(shipmentNotificationText))

// RenderShipmentNotification builds the tracking email for a shipped order.
func RenderShipmentNotification(info *ShipmentInfo) (*Email, error) {
	if info == nil {
		return nil, fmt.Errorf("shipment info is required")
	}

	var buf bytes.Buffer
	if err := shipmentNotificationTmpl.Execute(&buf, info); err != nil {
		return nil, fmt.Errorf("failed to render shipment notification: %w", err)
	}

	return &Email{
		To:      info.CustomerEmail,
		Subject: fmt.Sprintf("Your order %s has shipped", info.OrderID),
		Text:    buf.String(),
	}, nil
}
