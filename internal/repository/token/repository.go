package token

import (
	"context"
	"time"
)

// Token is an opaque bearer credential. Exactly one of ProfileID and
// AnonymousID is set: profile tokens authenticate accounts, anonymous tokens
// identify guest sessions so their carts can be carried over at login.
type Token struct {
	Token       string
	ProfileID   *string
	AnonymousID *string
	Kind        string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

type Repository interface {
	Create(ctx context.Context, t Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
}
