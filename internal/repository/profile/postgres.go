package profile

import (
	"context"
	"errors"
	"io"
	"log"

	"drivelous-store/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id::text, email, password_hash, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(stripe_id, ''), created_at`

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

func (r *postgresRepo) Create(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	const q = `
INSERT INTO profiles (email, password_hash, first_name, last_name, stripe_id)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
RETURNING ` + profileColumns + `
`
	out, err := scanProfile(r.pool.QueryRow(ctx, q, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.StripeID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("profile repo: create email=%s error=%v", p.Email, err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.fetchOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.fetchOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
}

func (r *postgresRepo) SetStripeID(ctx context.Context, id, stripeID string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE profiles SET stripe_id = $2 WHERE id = $1`, id, stripeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, args ...interface{}) (*domain.Profile, error) {
	out, err := scanProfile(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName, &p.StripeID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
