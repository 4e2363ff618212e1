package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relaypressapp/relaypress/internal/models"
)

type productWriter interface {
	Upsert(ctx context.Context, product *models.Product) error
}

// Sync parses and validates the catalog file and upserts every entry into
// the products table. Products absent from the file are left untouched;
// deactivation is an explicit `active: false` entry.
func Sync(ctx context.Context, store productWriter, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog file: %w", err)
	}

	catalog, err := NewParser().Parse(content)
	if err != nil {
		return 0, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if err := NewValidator().Validate(catalog); err != nil {
		return 0, fmt.Errorf("invalid catalog file: %w", err)
	}

	for _, entry := range catalog.Products {
		product := &models.Product{
			SKU:        entry.SKU,
			Title:      entry.Title,
			PriceCents: entry.PriceCents,
			Currency:   strings.ToLower(entry.Currency),
			Active:     entry.Active,
		}
		if err := store.Upsert(ctx, product); err != nil {
			return 0, fmt.Errorf("failed to upsert product %s: %w", entry.SKU, err)
		}
	}

	return len(catalog.Products), nil
}
