package cart

import (
	"context"

	"drivelous-store/internal/domain"
)

// CreateCartInput names the owner of a new active cart: a profile or an
// anonymous session, never both.
type CreateCartInput struct {
	ProfileID   *string
	AnonymousID *string
}

// AddLineInput carries an already-clamped quantity and the price snapshot
// captured at insertion time.
type AddLineInput struct {
	SKU            string
	Size           string
	Name           string
	Quantity       int
	UnitPriceCents int64
}

type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByProfile(ctx context.Context, profileID string) (*domain.Cart, error)
	ListActiveByProfile(ctx context.Context, profileID string) ([]domain.Cart, error)
	GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error)
	AssignProfile(ctx context.Context, anonymousID, profileID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, in AddLineInput) error
	SetLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, lineID string) error
	SetState(ctx context.Context, cartID, state string) error
}
