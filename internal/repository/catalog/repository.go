package catalog

import (
	"context"

	"drivelous-store/internal/domain"
)

// Repository is the only catalog surface the cart and order pipeline see:
// a stock-keeping unit with a queryable price and available quantity per
// size. Stock decrements go through the inventory ledger, not this interface.
type Repository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	GetVariant(ctx context.Context, sku, size string) (*domain.Variant, error)
	SetStock(ctx context.Context, sku, size string, stock int) error
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
