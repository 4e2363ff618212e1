// Package stripe provides Stripe Checkout integration and webhook validation.
package stripe

import (
	"fmt"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// ReadWebhookEvent verifies the Stripe-Signature header against the raw body
// and returns the parsed event. The body must not have been consumed before
// this call; the signature covers the exact byte sequence.
func ReadWebhookEvent(payload []byte, r *http.Request, secret string) (*stripeapi.Event, error) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return nil, fmt.Errorf("missing stripe signature header")
	}

	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature validation failed: %w", err)
	}

	return &event, nil
}
