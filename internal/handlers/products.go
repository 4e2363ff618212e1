package handlers

import (
	"net/http"

	"github.com/relaypressapp/relaypress/internal/db"
)

// Products lists the active catalog.
func (h *Handlers) Products(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.productStore.ListActive(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list products", "error", err)
		http.Error(w, "Failed to list products", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []db.Product{}
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{"products": products})
}
