package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is one append-only audit row per webhook delivery. Duplicate
// deliveries produce duplicate rows; the log is never deduplicated.
type PaymentEvent struct {
	ID        uuid.UUID  `json:"id"`
	Source    string     `json:"source"`
	EventType string     `json:"event_type"`
	Payload   []byte     `json:"payload"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

const (
	EventSourceStripe       = "stripe"
	EventSourceManufacturer = "manufacturer"
)
