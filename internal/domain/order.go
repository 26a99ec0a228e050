package domain

import "time"

// Order states. OPEN -> COMPLETED is one-way, no reversal.
const (
	OrderStatusOpen      = "open"
	OrderStatusCompleted = "completed"
)

// Order is the checkout record for exactly one cart. Shipping and billing are
// denormalized snapshots captured at attach time so later deletion of the
// source address or card cannot corrupt order history. The shipping address
// identity is kept alongside its snapshot so an edited address refreshes the
// snapshot while the order is still open.
type Order struct {
	ID                string           `json:"id"`
	ProfileID         string           `json:"profileId"`
	CartID            string           `json:"cartId"`
	OrderID           string           `json:"orderId"`
	Status            string           `json:"status"`
	Active            bool             `json:"active"`
	ShippingAddressID *string          `json:"-"`
	Shipping          ShippingSnapshot `json:"shipping"`
	Billing           BillingSnapshot  `json:"billing"`
	DateCompleted     *time.Time       `json:"dateCompleted,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

func (o Order) Open() bool {
	return o.Status == OrderStatusOpen
}

// HasShipping reports whether a shipping snapshot has been attached.
func (o Order) HasShipping() bool {
	return o.Shipping.Address1 != ""
}

// HasBilling reports whether a payment method has been attached.
func (o Order) HasBilling() bool {
	return o.Billing.CardID != "" && o.Billing.Address1 != ""
}

// ShippingSnapshot is a frozen copy of a shipping address.
type ShippingSnapshot struct {
	Nickname  string `json:"nickname,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// BillingSnapshot is a frozen copy of a provider card and its billing
// address. The zero value means no payment method is attached.
type BillingSnapshot struct {
	FullName string `json:"fullName,omitempty"`
	CardID   string `json:"-"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
	Country  string `json:"country,omitempty"`
	ExpMonth int    `json:"expMonth,omitempty"`
	ExpYear  int    `json:"expYear,omitempty"`
	Last4    string `json:"last4,omitempty"`
	Brand    string `json:"brand,omitempty"`
}
