package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"drivelous-store/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `
id::text, profile_id::text, cart_id::text, order_id, status, active, shipping_address_id::text,
COALESCE(shipping_nickname, ''), COALESCE(shipping_first_name, ''), COALESCE(shipping_last_name, ''),
COALESCE(shipping_address1, ''), COALESCE(shipping_address2, ''), COALESCE(shipping_city, ''),
COALESCE(shipping_state, ''), COALESCE(shipping_zip, ''), COALESCE(shipping_country, ''),
COALESCE(shipping_phone, ''),
COALESCE(full_name, ''), COALESCE(card_id, ''),
COALESCE(billing_address1, ''), COALESCE(billing_address2, ''), COALESCE(billing_city, ''),
COALESCE(billing_state, ''), COALESCE(billing_zip, ''), COALESCE(billing_country, ''),
COALESCE(exp_month, 0), COALESCE(exp_year, 0), COALESCE(cc_four, ''), COALESCE(brand, ''),
date_completed, created_at`

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

func (r *postgresRepo) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	const q = `
INSERT INTO orders (profile_id, cart_id, order_id, status, active)
VALUES ($1, $2, $3, 'open', TRUE)
RETURNING ` + orderColumns + `
`
	row := r.pool.QueryRow(ctx, q, in.ProfileID, in.CartID, in.OrderID)
	o, err := scanOrder(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Either the cart already has an order or the generated order id
			// collided; the caller decides which by re-fetching.
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: create cart_id=%s error=%v", in.CartID, err)
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByCart(ctx context.Context, cartID string) (*domain.Order, error) {
	return r.fetchOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE cart_id = $1`, cartID)
}

func (r *postgresRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.fetchOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
}

func (r *postgresRepo) GetOpenByProfile(ctx context.Context, profileID string) (*domain.Order, error) {
	return r.fetchOne(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE profile_id = $1 AND status = 'open' AND active
ORDER BY created_at DESC
LIMIT 1
`, profileID)
}

func (r *postgresRepo) ListCompletedByProfile(ctx context.Context, profileID string) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE profile_id = $1 AND status = 'completed'
ORDER BY date_completed DESC
`
	rows, err := r.pool.Query(ctx, q, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) OrderIDExists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`, orderID).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) UpdateShipping(ctx context.Context, id string, addressID *string, snap domain.ShippingSnapshot) error {
	const q = `
UPDATE orders
SET shipping_address_id = $2,
    shipping_nickname = $3,
    shipping_first_name = $4,
    shipping_last_name = $5,
    shipping_address1 = $6,
    shipping_address2 = $7,
    shipping_city = $8,
    shipping_state = $9,
    shipping_zip = $10,
    shipping_country = $11,
    shipping_phone = $12
WHERE id = $1 AND status = 'open'
`
	cmd, err := r.pool.Exec(ctx, q, id, addressID,
		snap.Nickname, snap.FirstName, snap.LastName,
		snap.Address1, snap.Address2, snap.City, snap.State, snap.ZipCode, snap.Country, snap.Phone)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpdateBilling(ctx context.Context, id string, snap domain.BillingSnapshot) error {
	const q = `
UPDATE orders
SET full_name = $2,
    card_id = $3,
    billing_address1 = $4,
    billing_address2 = $5,
    billing_city = $6,
    billing_state = $7,
    billing_zip = $8,
    billing_country = $9,
    exp_month = $10,
    exp_year = $11,
    cc_four = $12,
    brand = $13
WHERE id = $1 AND status = 'open'
`
	cmd, err := r.pool.Exec(ctx, q, id,
		snap.FullName, snap.CardID,
		snap.Address1, snap.Address2, snap.City, snap.State, snap.ZipCode, snap.Country,
		snap.ExpMonth, snap.ExpYear, snap.Last4, snap.Brand)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete transitions open -> completed exactly once; a second call finds no
// open row and reports not found.
func (r *postgresRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	const q = `
UPDATE orders
SET status = 'completed',
    active = FALSE,
    date_completed = $2
WHERE id = $1 AND status = 'open'
`
	cmd, err := r.pool.Exec(ctx, q, id, completedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, args ...interface{}) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.ProfileID, &o.CartID, &o.OrderID, &o.Status, &o.Active, &o.ShippingAddressID,
		&o.Shipping.Nickname, &o.Shipping.FirstName, &o.Shipping.LastName,
		&o.Shipping.Address1, &o.Shipping.Address2, &o.Shipping.City,
		&o.Shipping.State, &o.Shipping.ZipCode, &o.Shipping.Country,
		&o.Shipping.Phone,
		&o.Billing.FullName, &o.Billing.CardID,
		&o.Billing.Address1, &o.Billing.Address2, &o.Billing.City,
		&o.Billing.State, &o.Billing.ZipCode, &o.Billing.Country,
		&o.Billing.ExpMonth, &o.Billing.ExpYear, &o.Billing.Last4, &o.Billing.Brand,
		&o.DateCompleted, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
