package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is owned by the catalog sync; the order core only reads it.
type Product struct {
	ID         uuid.UUID `json:"id"`
	SKU        string    `json:"sku"`
	Title      string    `json:"title"`
	PriceCents int       `json:"price_cents"`
	Currency   string    `json:"currency"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
