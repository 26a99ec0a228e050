package address

import (
	"context"

	"drivelous-store/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, addr domain.ShippingAddress) (*domain.ShippingAddress, error)
	Get(ctx context.Context, profileID, id string) (*domain.ShippingAddress, error)
	ListByProfile(ctx context.Context, profileID string) ([]domain.ShippingAddress, error)
	GetDefault(ctx context.Context, profileID string) (*domain.ShippingAddress, error)
	// SetDefault flags one address and unflags every other address of the
	// profile in the same transaction, keeping at most one default.
	SetDefault(ctx context.Context, profileID, id string) error
	Delete(ctx context.Context, profileID, id string) error
}
