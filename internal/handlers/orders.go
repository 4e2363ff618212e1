package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/relaypressapp/relaypress/internal/db"
)

type orderResponse struct {
	Order *db.Order     `json:"order"`
	Items []db.LineItem `json:"items"`
}

// GetOrder returns an order with its line-item snapshot.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.orderStore.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.loggerFromContext(ctx).Error("failed to load order", "error", err, "order_id", orderID)
		http.Error(w, "Failed to load order", http.StatusInternalServerError)
		return
	}

	items, err := h.orderStore.GetLineItems(ctx, orderID)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load line items", "error", err, "order_id", orderID)
		http.Error(w, "Failed to load order", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []db.LineItem{}
	}

	h.writeJSON(w, r, http.StatusOK, orderResponse{Order: order, Items: items})
}
