package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

const productColumns = `id, sku, title, price_cents, currency, active, created_at, updated_at`

func (s *ProductStore) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Title, &p.PriceCents, &p.Currency, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByIDs returns the active products among ids, keyed by id. Ids with no
// active product are simply absent from the result.
func (s *ProductStore) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Product{}, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active AND id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[uuid.UUID]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Title, &p.PriceCents, &p.Currency, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

// Upsert writes a catalog entry, keyed by SKU. Used only by catalog sync;
// the order core never mutates products.
func (s *ProductStore) Upsert(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, sku, title, price_cents, currency, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sku) DO UPDATE
		SET title = EXCLUDED.title,
		    price_cents = EXCLUDED.price_cents,
		    currency = EXCLUDED.currency,
		    active = EXCLUDED.active,
		    updated_at = NOW()
	`, product.ID, product.SKU, product.Title, product.PriceCents, product.Currency, product.Active)
	return err
}
