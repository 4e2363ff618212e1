package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/relaypressapp/relaypress/internal/cache"
	"github.com/relaypressapp/relaypress/internal/db"
	stripewebhook "github.com/relaypressapp/relaypress/internal/stripe"
)

// stripeWebhookIdempotencyTTL is how long webhook event IDs are kept for deduplication
const stripeWebhookIdempotencyTTL = 24 * time.Hour

// StripeWebhook receives payment events. Signature failures get a 400 with no
// state change. Every verified delivery is appended to the audit log, cache
// hits included; only the state transition itself is deduplicated.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read Stripe webhook body", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	event, err := stripewebhook.ReadWebhookEvent(payload, r, h.config.StripeWebhookSecret)
	if err != nil {
		logger.Error("failed to verify Stripe webhook", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event == nil || event.ID == "" {
		logger.Error("missing Stripe event ID")
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	if err := h.eventStore.Append(ctx, db.EventSourceStripe, string(event.Type), payload, stripeEventOrderID(event.Data)); err != nil {
		logger.Error("failed to append webhook audit row", "error", err, "event_id", event.ID)
	}

	cacheKey := cache.WebhookKey("stripe", event.ID)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("webhook already processed", "event_id", event.ID)
		h.writeJSON(w, r, http.StatusOK, map[string]bool{"received": true})
		return
	}

	processErr := h.stripeRouter.Handle(ctx, event)
	if processErr == nil {
		if err := h.cacheProvider.Set(ctx, cacheKey, "processed", stripeWebhookIdempotencyTTL); err != nil {
			logger.Error("failed to mark webhook as processed in cache", "error", err)
		}
	}
	if processErr != nil {
		logger.Error("failed to process Stripe webhook", "error", processErr, "type", event.Type)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"received": true})
}

// stripeEventOrderID correlates the audit row with an order when the event
// object carries the order_id metadata written at session creation.
func stripeEventOrderID(data *stripeapi.EventData) *uuid.UUID {
	if data == nil || len(data.Raw) == 0 {
		return nil
	}

	var object struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data.Raw, &object); err != nil {
		return nil
	}

	orderID, err := uuid.Parse(object.Metadata["order_id"])
	if err != nil {
		return nil
	}
	return &orderID
}
