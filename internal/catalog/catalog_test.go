package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/relaypressapp/relaypress/internal/models"
)

const validCatalogYAML = `
products:
  - sku: TEE_BLACK
    title: Black Tee
    price_cents: 2500
    currency: usd
    active: true
  - sku: MUG_WHITE
    title: White Mug
    price_cents: 1200
    currency: usd
    active: false
`

func TestParserParse(t *testing.T) {
	t.Parallel()

	catalog, err := NewParser().ParseFromString(validCatalogYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(catalog.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(catalog.Products))
	}
	first := catalog.Products[0]
	if first.SKU != "TEE_BLACK" || first.PriceCents != 2500 || !first.Active {
		t.Fatalf("unexpected first product: %+v", first)
	}
}

func TestParserParse_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewParser().ParseFromString("products: [:::"); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidatorValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		catalog Catalog
		wantErr bool
	}{
		{
			name: "valid catalog",
			catalog: Catalog{Products: []ProductEntry{
				{SKU: "TEE_BLACK", Title: "Black Tee", PriceCents: 2500, Currency: "usd", Active: true},
			}},
		},
		{
			name:    "no products",
			catalog: Catalog{},
			wantErr: true,
		},
		{
			name: "missing sku",
			catalog: Catalog{Products: []ProductEntry{
				{Title: "Black Tee", PriceCents: 2500, Currency: "usd"},
			}},
			wantErr: true,
		},
		{
			name: "missing title",
			catalog: Catalog{Products: []ProductEntry{
				{SKU: "TEE_BLACK", PriceCents: 2500, Currency: "usd"},
			}},
			wantErr: true,
		},
		{
			name: "negative price",
			catalog: Catalog{Products: []ProductEntry{
				{SKU: "TEE_BLACK", Title: "Black Tee", PriceCents: -1, Currency: "usd"},
			}},
			wantErr: true,
		},
		{
			name: "bad currency",
			catalog: Catalog{Products: []ProductEntry{
				{SKU: "TEE_BLACK", Title: "Black Tee", PriceCents: 2500, Currency: "dollars"},
			}},
			wantErr: true,
		},
		{
			name: "duplicate sku",
			catalog: Catalog{Products: []ProductEntry{
				{SKU: "TEE_BLACK", Title: "Black Tee", PriceCents: 2500, Currency: "usd"},
				{SKU: "TEE_BLACK", Title: "Black Tee v2", PriceCents: 2600, Currency: "usd"},
			}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := NewValidator().Validate(&tc.catalog)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

type fakeProductWriter struct {
	upserted []models.Product
}

func (f *fakeProductWriter) Upsert(_ context.Context, product *models.Product) error {
	f.upserted = append(f.upserted, *product)
	return nil
}

func TestSync(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "products.yaml")
	if err := os.WriteFile(path, []byte(validCatalogYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	writer := &fakeProductWriter{}
	count, err := Sync(context.Background(), writer, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if len(writer.upserted) != 2 {
		t.Fatalf("upserted = %d, want 2", len(writer.upserted))
	}
	if writer.upserted[1].SKU != "MUG_WHITE" || writer.upserted[1].Active {
		t.Fatalf("unexpected second upsert: %+v", writer.upserted[1])
	}
}

func TestSync_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Sync(context.Background(), &fakeProductWriter{}, filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
