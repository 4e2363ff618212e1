package catalog

// Package catalog loads the products.yaml file the shop owner maintains and
// syncs it into the products table.

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Products []ProductEntry `yaml:"products"`
}

type ProductEntry struct {
	SKU        string `yaml:"sku"`
	Title      string `yaml:"title"`
	PriceCents int    `yaml:"price_cents"`
	Currency   string `yaml:"currency"`
	Active     bool   `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &catalog, nil
}

func (p *Parser) ParseFromString(content string) (*Catalog, error) {
	return p.Parse([]byte(content))
}
