package cart

import (
	"context"
	"errors"

	"drivelous-store/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cartColumns = `id::text, profile_id::text, anonymous_id, total_cents, state, created_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (profile_id, anonymous_id, total_cents, state)
VALUES ($1, $2, 0, 'active')
RETURNING ` + cartColumns + `
`
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, q, in.ProfileID, in.AnonymousID).Scan(
		&cart.ID,
		&cart.ProfileID,
		&cart.AnonymousID,
		&cart.TotalCents,
		&cart.State,
		&cart.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// A concurrent request won the one-active-cart-per-owner race.
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE id = $1
`, id)
}

func (r *postgresRepo) GetActiveByProfile(ctx context.Context, profileID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE profile_id = $1 AND state = 'active'
ORDER BY created_at DESC
LIMIT 1
`, profileID)
}

func (r *postgresRepo) ListActiveByProfile(ctx context.Context, profileID string) ([]domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE profile_id = $1 AND state = 'active'
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var cart domain.Cart
		if err := rows.Scan(&cart.ID, &cart.ProfileID, &cart.AnonymousID, &cart.TotalCents, &cart.State, &cart.CreatedAt); err != nil {
			return nil, err
		}
		ids = append(ids, cart.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Re-fetch with lines; active carts per profile are at most a handful.
	carts := make([]domain.Cart, 0, len(ids))
	for _, id := range ids {
		cart, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		carts = append(carts, *cart)
	}
	return carts, nil
}

func (r *postgresRepo) GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE anonymous_id = $1 AND state = 'active'
ORDER BY created_at DESC
LIMIT 1
`, anonymousID)
}

// AssignProfile re-owns an anonymous session's active cart, clearing the
// session linkage so repeated logins do not re-adopt it.
func (r *postgresRepo) AssignProfile(ctx context.Context, anonymousID, profileID string) (*domain.Cart, error) {
	const q = `
UPDATE carts
SET profile_id = $1,
    anonymous_id = NULL
WHERE anonymous_id = $2 AND state = 'active'
RETURNING id::text
`
	var cartID string
	if err := r.pool.QueryRow(ctx, q, profileID, anonymousID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return r.GetByID(ctx, cartID)
}

func (r *postgresRepo) AddLineItem(ctx context.Context, cartID string, in AddLineInput) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := in.UnitPriceCents * int64(in.Quantity)
	if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, sku, size, name, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (cart_id, sku, size) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    total_cents = cart_lines.unit_price_cents * EXCLUDED.quantity
`, cartID, in.SKU, in.Size, in.Name, in.Quantity, total); err != nil {
		return err
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// A zero-quantity line is deleted, never retained.
	if quantity <= 0 {
		cmd, err := tx.Exec(ctx, `
DELETE FROM cart_lines
WHERE id = $1 AND cart_id = $2
`, lineID, cartID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	} else {
		cmd, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1,
    total_cents = unit_price_cents * $1
WHERE id = $2 AND cart_id = $3
`, quantity, lineID, cartID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveLineItem(ctx context.Context, cartID, lineID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_lines
WHERE id = $1 AND cart_id = $2
`, lineID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetState(ctx context.Context, cartID, state string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE carts
SET state = $1
WHERE id = $2
`, state, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...interface{}) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, args...).Scan(
		&cart.ID,
		&cart.ProfileID,
		&cart.AnonymousID,
		&cart.TotalCents,
		&cart.State,
		&cart.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQuery = `
SELECT id::text, cart_id::text, sku, size, name, quantity, unit_price_cents, total_cents, created_at
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.SKU,
			&line.Size,
			&line.Name,
			&line.Quantity,
			&line.UnitPriceCents,
			&line.TotalCents,
			&line.CreatedAt,
		); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

// updateCartTotal recomputes the persisted total from persisted lines inside
// the same transaction as the mutation, so the two are never observed apart.
func updateCartTotal(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET total_cents = COALESCE((
	SELECT SUM(total_cents)
	FROM cart_lines
	WHERE cart_id = $1
), 0)
WHERE id = $1
`, cartID)
	return err
}
