package billing

import (
	"context"

	"drivelous-store/internal/domain"
)

// Repository stores the per-profile default-billing snapshot, the local
// mirror of the provider's default card.
type Repository interface {
	Get(ctx context.Context, profileID string) (*domain.DefaultBilling, error)
	// Update overwrites the full snapshot; the zero value clears it (no
	// cards remain on the provider side).
	Update(ctx context.Context, snap domain.DefaultBilling) error
}
