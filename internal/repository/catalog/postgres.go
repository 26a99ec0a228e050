package catalog

import (
	"context"
	"errors"
	"io"
	"log"

	"drivelous-store/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT id::text, sku, name, slug, family, COALESCE(description, ''), active, created_at
FROM products
WHERE active
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	index := make(map[string]int)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Family, &p.Description, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}

	const vq = `
SELECT v.id::text, v.product_id::text, v.size, v.original_price_cents, v.sale_price_cents, v.stock
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE p.active
ORDER BY v.product_id, v.size ASC
`
	vrows, err := r.pool.Query(ctx, vq)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()

	for vrows.Next() {
		var v domain.Variant
		if err := vrows.Scan(&v.ID, &v.ProductID, &v.Size, &v.OriginalPriceCents, &v.SalePriceCents, &v.Stock); err != nil {
			return nil, err
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	const q = `
SELECT id::text, sku, name, slug, family, COALESCE(description, ''), active, created_at
FROM products
WHERE sku = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, sku).Scan(&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Family, &p.Description, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: get sku=%s error=%v", sku, err)
		return nil, err
	}

	const vq = `
SELECT id::text, product_id::text, size, original_price_cents, sale_price_cents, stock
FROM product_variants
WHERE product_id = $1
ORDER BY size ASC
`
	rows, err := r.pool.Query(ctx, vq, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.OriginalPriceCents, &v.SalePriceCents, &v.Stock); err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, sku, size string) (*domain.Variant, error) {
	const q = `
SELECT v.id::text, v.product_id::text, v.size, v.original_price_cents, v.sale_price_cents, v.stock
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE p.sku = $1 AND v.size = $2
`
	var v domain.Variant
	err := r.pool.QueryRow(ctx, q, sku, size).Scan(&v.ID, &v.ProductID, &v.Size, &v.OriginalPriceCents, &v.SalePriceCents, &v.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: variant sku=%s size=%q error=%v", sku, size, err)
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepo) SetStock(ctx context.Context, sku, size string, stock int) error {
	const q = `
UPDATE product_variants v
SET stock = $3
FROM products p
WHERE v.product_id = p.id AND p.sku = $1 AND v.size = $2
`
	cmd, err := r.pool.Exec(ctx, q, sku, size, stock)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if stock > 0 {
		// Restocking an exhausted product brings it back into the catalog.
		_, err = r.pool.Exec(ctx, `UPDATE products SET active = TRUE WHERE sku = $1`, sku)
	}
	return err
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO products (sku, name, slug, family, description, active)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    slug = EXCLUDED.slug,
    family = EXCLUDED.family,
    description = EXCLUDED.description,
    active = EXCLUDED.active
RETURNING id::text, created_at
`
	res := product
	if err := tx.QueryRow(ctx, q, product.SKU, product.Name, product.Slug, product.Family, product.Description, product.Active).Scan(&res.ID, &res.CreatedAt); err != nil {
		r.logger.Printf("catalog repo: upsert sku=%s error=%v", product.SKU, err)
		return nil, err
	}

	const vq = `
INSERT INTO product_variants (product_id, size, original_price_cents, sale_price_cents, stock)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id, size) DO UPDATE SET
    original_price_cents = EXCLUDED.original_price_cents,
    sale_price_cents = EXCLUDED.sale_price_cents,
    stock = EXCLUDED.stock
RETURNING id::text
`
	for i, v := range res.Variants {
		if err := tx.QueryRow(ctx, vq, res.ID, v.Size, v.OriginalPriceCents, v.SalePriceCents, v.Stock).Scan(&res.Variants[i].ID); err != nil {
			return nil, err
		}
		res.Variants[i].ProductID = res.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("catalog repo: upserted sku=%s variants=%d", res.SKU, len(res.Variants))
	return &res, nil
}
