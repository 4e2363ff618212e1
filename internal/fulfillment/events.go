package fulfillment

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventFulfillmentAccepted EventType = "fulfillment.accepted"
	EventFulfillmentShipped  EventType = "fulfillment.shipped"
)

// Event is a parsed manufacturer webhook. Unknown types are preserved so the
// handler can acknowledge them without the partner retrying.
type Event struct {
	Type           EventType `json:"type"`
	FulfillmentID  string    `json:"fulfillment_id"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Carrier        string    `json:"carrier,omitempty"`
}

// Known reports whether the relay understands this event type.
func (e *Event) Known() bool {
	switch e.Type {
	case EventFulfillmentAccepted, EventFulfillmentShipped:
		return true
	default:
		return false
	}
}

// ParseEvent decodes and validates a webhook body. Call only after signature
// verification. Known types must carry the fields the transition needs;
// unknown types parse successfully and are handled as no-ops.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}

	if event.Type == "" {
		return nil, fmt.Errorf("missing event type")
	}

	switch event.Type {
	case EventFulfillmentAccepted:
		if event.FulfillmentID == "" {
			return nil, fmt.Errorf("%s event missing fulfillment_id", event.Type)
		}
	case EventFulfillmentShipped:
		if event.FulfillmentID == "" {
			return nil, fmt.Errorf("%s event missing fulfillment_id", event.Type)
		}
		if event.TrackingNumber == "" {
			return nil, fmt.Errorf("%s event missing tracking_number", event.Type)
		}
	}

	return &event, nil
}
