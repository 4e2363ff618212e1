package db

import "github.com/relaypressapp/relaypress/internal/models"

type Order = models.Order
type LineItem = models.LineItem
type Product = models.Product
type PaymentEvent = models.PaymentEvent
type OrderStatus = models.OrderStatus

const (
	StatusPending             = models.StatusPending
	StatusPaid                = models.StatusPaid
	StatusSentToSupplier      = models.StatusSentToSupplier
	StatusFulfillmentAccepted = models.StatusFulfillmentAccepted
	StatusShipped             = models.StatusShipped
	StatusExpired             = models.StatusExpired
)

const (
	EventSourceStripe       = models.EventSourceStripe
	EventSourceManufacturer = models.EventSourceManufacturer
)
