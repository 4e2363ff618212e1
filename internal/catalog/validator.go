package catalog

import (
	"fmt"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(catalog *Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog is required")
	}

	if len(catalog.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	skus := make(map[string]bool)
	for i, product := range catalog.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if skus[product.SKU] {
			return fmt.Errorf("duplicate SKU: %s", product.SKU)
		}
		skus[product.SKU] = true
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductEntry) error {
	if strings.TrimSpace(product.SKU) == "" {
		return fmt.Errorf("product SKU is required")
	}

	if strings.TrimSpace(product.Title) == "" {
		return fmt.Errorf("product title is required")
	}

	if product.PriceCents < 0 {
		return fmt.Errorf("product price must be zero or positive")
	}

	if len(product.Currency) != 3 {
		return fmt.Errorf("product currency must be a 3-letter code")
	}

	return nil
}
