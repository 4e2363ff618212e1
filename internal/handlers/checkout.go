package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/relaypressapp/relaypress/internal/services"
)

type checkoutRequest struct {
	Email string                `json:"email"`
	Items []checkoutRequestItem `json:"items"`
}

type checkoutRequestItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type checkoutResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	TotalCents  int       `json:"total_cents"`
	RedirectURL string    `json:"redirect_url"`
	SessionID   string    `json:"session_id"`
}

// Checkout creates a pending order for the posted cart and returns the
// payment redirect. The order survives a gateway failure; the client retries
// with a fresh checkout call.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		http.Error(w, "A valid email is required", http.StatusBadRequest)
		return
	}

	input := services.CheckoutInput{Email: req.Email}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			http.Error(w, "Item quantities must be positive", http.StatusBadRequest)
			return
		}
		input.Items = append(input.Items, services.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.checkoutService.Checkout(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			http.Error(w, "Cart has no purchasable items", http.StatusBadRequest)
		case errors.Is(err, services.ErrPaymentGateway):
			logger.Error("checkout payment session failed", "error", err)
			http.Error(w, "Payment provider unavailable", http.StatusBadGateway)
		default:
			logger.Error("checkout failed", "error", err)
			http.Error(w, "Checkout failed", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, r, http.StatusCreated, checkoutResponse{
		OrderID:     result.OrderID,
		TotalCents:  result.TotalCents,
		RedirectURL: result.RedirectURL,
		SessionID:   result.SessionID,
	})
}
