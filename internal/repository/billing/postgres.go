package billing

import (
	"context"
	"errors"

	"drivelous-store/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, profileID string) (*domain.DefaultBilling, error) {
	const q = `
SELECT profile_id::text, COALESCE(card_id, ''), COALESCE(full_name, ''),
       COALESCE(billing_address1, ''), COALESCE(billing_address2, ''), COALESCE(billing_city, ''),
       COALESCE(billing_state, ''), COALESCE(billing_zip, ''), COALESCE(billing_country, ''),
       COALESCE(exp_month, 0), COALESCE(exp_year, 0), COALESCE(cc_four, ''), COALESCE(brand, ''),
       updated_at
FROM default_billing
WHERE profile_id = $1
`
	var b domain.DefaultBilling
	err := r.pool.QueryRow(ctx, q, profileID).Scan(
		&b.ProfileID, &b.CardID, &b.FullName,
		&b.Address1, &b.Address2, &b.City,
		&b.State, &b.ZipCode, &b.Country,
		&b.ExpMonth, &b.ExpYear, &b.Last4, &b.Brand,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *postgresRepo) Update(ctx context.Context, snap domain.DefaultBilling) error {
	const q = `
INSERT INTO default_billing
    (profile_id, card_id, full_name, billing_address1, billing_address2, billing_city,
     billing_state, billing_zip, billing_country, exp_month, exp_year, cc_four, brand, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
ON CONFLICT (profile_id) DO UPDATE SET
    card_id = EXCLUDED.card_id,
    full_name = EXCLUDED.full_name,
    billing_address1 = EXCLUDED.billing_address1,
    billing_address2 = EXCLUDED.billing_address2,
    billing_city = EXCLUDED.billing_city,
    billing_state = EXCLUDED.billing_state,
    billing_zip = EXCLUDED.billing_zip,
    billing_country = EXCLUDED.billing_country,
    exp_month = EXCLUDED.exp_month,
    exp_year = EXCLUDED.exp_year,
    cc_four = EXCLUDED.cc_four,
    brand = EXCLUDED.brand,
    updated_at = now()
`
	_, err := r.pool.Exec(ctx, q,
		snap.ProfileID, snap.CardID, snap.FullName,
		snap.Address1, snap.Address2, snap.City,
		snap.State, snap.ZipCode, snap.Country,
		snap.ExpMonth, snap.ExpYear, snap.Last4, snap.Brand)
	return err
}
