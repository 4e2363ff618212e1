package handlers

import (
	"io"
	"net/http"

	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/fulfillment"
)

// ManufacturerWebhook receives shipment-status events from the manufacturing
// partner. Signature failures get a 400 with no state change and no audit
// row. Verified deliveries are always audited and acknowledged with a 200;
// events the state machine cannot apply are no-ops, not retries.
func (h *Handlers) ManufacturerWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read manufacturer webhook body", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if err := fulfillment.VerifyWebhook(payload, r, h.config.ManufacturerWebhookSecret); err != nil {
		logger.Error("failed to verify manufacturer webhook", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	event, err := fulfillment.ParseEvent(payload)
	if err != nil {
		logger.Error("malformed manufacturer webhook payload", "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.eventStore.Append(ctx, db.EventSourceManufacturer, string(event.Type), payload, nil); err != nil {
		logger.Error("failed to append webhook audit row", "error", err, "fulfillment_id", event.FulfillmentID)
	}

	if err := h.manufacturerRouter.Handle(ctx, event); err != nil {
		logger.Error("failed to process manufacturer webhook", "error", err, "type", event.Type)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}
