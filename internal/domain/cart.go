package domain

import "time"

// Cart states. A cart is created active and becomes inactive exactly once,
// atomically with order finalization (or when merged into another cart).
const (
	CartStateActive   = "active"
	CartStateInactive = "inactive"
)

// Cart is owned by either a profile or an anonymous session, never both.
type Cart struct {
	ID          string     `json:"id"`
	ProfileID   *string    `json:"profileId,omitempty"`
	AnonymousID *string    `json:"-"`
	TotalCents  int64      `json:"totalCents"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	Lines       []CartLine `json:"lineItems,omitempty"`
}

func (c Cart) Active() bool {
	return c.State == CartStateActive
}

// Size returns the number of line items in the cart.
func (c Cart) Size() int {
	return len(c.Lines)
}

// CartLine is one (sku, size) entry in a cart. UnitPriceCents is a snapshot
// captured when the line was inserted and is never live-repriced.
type CartLine struct {
	ID             string    `json:"id"`
	CartID         string    `json:"cartId"`
	SKU            string    `json:"sku"`
	Size           string    `json:"size,omitempty"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	TotalCents     int64     `json:"totalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}
