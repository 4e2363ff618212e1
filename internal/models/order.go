package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending             OrderStatus = "pending"
	StatusPaid                OrderStatus = "paid"
	StatusSentToSupplier      OrderStatus = "sent_to_supplier"
	StatusFulfillmentAccepted OrderStatus = "fulfillment_accepted"
	StatusShipped             OrderStatus = "shipped"
	StatusExpired             OrderStatus = "expired"
)

// statusRank orders the lifecycle. Transitions may only increase rank.
var statusRank = map[OrderStatus]int{
	StatusPending:             0,
	StatusPaid:                1,
	StatusSentToSupplier:      2,
	StatusFulfillmentAccepted: 3,
	StatusShipped:             4,
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Expired is terminal and only reachable from pending.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if next == StatusExpired {
		return s == StatusPending
	}
	if s == StatusExpired {
		return false
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusShipped || s == StatusExpired
}

type Order struct {
	ID                    uuid.UUID      `json:"id"`
	Email                 string         `json:"email"`
	TotalCents            int            `json:"total_cents"`
	Currency              string         `json:"currency"`
	Status                OrderStatus    `json:"status"`
	StripeSessionID       string         `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string         `json:"stripe_payment_intent_id,omitempty"`
	FulfillmentID         string         `json:"fulfillment_id,omitempty"`
	TrackingNumber        string         `json:"tracking_number,omitempty"`
	Carrier               string         `json:"carrier,omitempty"`
	ShippingAddress       map[string]any `json:"shipping_address,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	PaidAt                time.Time      `json:"paid_at,omitzero"`
	SentToSupplierAt      time.Time      `json:"sent_to_supplier_at,omitzero"`
	AcceptedAt            time.Time      `json:"accepted_at,omitzero"`
	ShippedAt             time.Time      `json:"shipped_at,omitzero"`
}

// LineItem is a unit-price snapshot taken when the order is created. It never
// changes after the creating transaction commits, regardless of catalog edits.
type LineItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	ProductID      uuid.UUID `json:"product_id"`
	SKU            string    `json:"sku"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
}
