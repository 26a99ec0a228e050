package profile

import (
	"context"

	"drivelous-store/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p domain.Profile) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	// SetStripeID records the provider customer created for this profile.
	SetStripeID(ctx context.Context, id, stripeID string) error
}
