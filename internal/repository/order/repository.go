package order

import (
	"context"
	"time"

	"drivelous-store/internal/domain"
)

type CreateOrderInput struct {
	ProfileID string
	CartID    string
	OrderID   string
}

type Repository interface {
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetByCart(ctx context.Context, cartID string) (*domain.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	GetOpenByProfile(ctx context.Context, profileID string) (*domain.Order, error)
	ListCompletedByProfile(ctx context.Context, profileID string) ([]domain.Order, error)
	OrderIDExists(ctx context.Context, orderID string) (bool, error)
	// UpdateShipping overwrites the shipping snapshot and the source-address
	// reference used for snapshot refresh while the order stays open.
	UpdateShipping(ctx context.Context, id string, addressID *string, snap domain.ShippingSnapshot) error
	// UpdateBilling overwrites the billing snapshot; the zero value clears it.
	UpdateBilling(ctx context.Context, id string, snap domain.BillingSnapshot) error
	Complete(ctx context.Context, id string, completedAt time.Time) error
}
