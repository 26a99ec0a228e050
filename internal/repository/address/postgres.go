package address

import (
	"context"
	"errors"

	"drivelous-store/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const addressColumns = `
id::text, profile_id::text, COALESCE(nickname, ''), first_name, last_name,
address1, COALESCE(address2, ''), city, state, zip_code, country,
COALESCE(phone, ''), is_default, created_at, updated_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, addr domain.ShippingAddress) (*domain.ShippingAddress, error) {
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	const q = `
INSERT INTO shipping_addresses
    (id, profile_id, nickname, first_name, last_name, address1, address2, city, state, zip_code, country, phone, is_default)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, NULLIF($12, ''), $13)
RETURNING ` + addressColumns + `
`
	row := r.pool.QueryRow(ctx, q,
		addr.ID, addr.ProfileID, addr.Nickname, addr.FirstName, addr.LastName,
		addr.Address1, addr.Address2, addr.City, addr.State, addr.ZipCode, addr.Country,
		addr.Phone, addr.IsDefault)
	return scanAddress(row)
}

func (r *postgresRepo) Get(ctx context.Context, profileID, id string) (*domain.ShippingAddress, error) {
	return r.fetchOne(ctx, `
SELECT `+addressColumns+`
FROM shipping_addresses
WHERE profile_id = $1 AND id = $2
`, profileID, id)
}

func (r *postgresRepo) ListByProfile(ctx context.Context, profileID string) ([]domain.ShippingAddress, error) {
	const q = `
SELECT ` + addressColumns + `
FROM shipping_addresses
WHERE profile_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ShippingAddress
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *addr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetDefault(ctx context.Context, profileID string) (*domain.ShippingAddress, error) {
	return r.fetchOne(ctx, `
SELECT `+addressColumns+`
FROM shipping_addresses
WHERE profile_id = $1 AND is_default
LIMIT 1
`, profileID)
}

func (r *postgresRepo) SetDefault(ctx context.Context, profileID, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
UPDATE shipping_addresses
SET is_default = FALSE, updated_at = now()
WHERE profile_id = $1 AND is_default AND id <> $2
`, profileID, id); err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, `
UPDATE shipping_addresses
SET is_default = TRUE, updated_at = now()
WHERE profile_id = $1 AND id = $2
`, profileID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) Delete(ctx context.Context, profileID, id string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM shipping_addresses
WHERE profile_id = $1 AND id = $2
`, profileID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, args ...interface{}) (*domain.ShippingAddress, error) {
	addr, err := scanAddress(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return addr, nil
}

func scanAddress(row pgx.Row) (*domain.ShippingAddress, error) {
	var a domain.ShippingAddress
	err := row.Scan(
		&a.ID, &a.ProfileID, &a.Nickname, &a.FirstName, &a.LastName,
		&a.Address1, &a.Address2, &a.City, &a.State, &a.ZipCode, &a.Country,
		&a.Phone, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
