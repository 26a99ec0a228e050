package domain

import "time"

// Profile is a registered storefront account.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	StripeID     string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ShippingAddress belongs to a profile. At most one address per profile is
// flagged default; deleting the default promotes another address, if any.
type ShippingAddress struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	Nickname  string    `json:"nickname,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Address1  string    `json:"address1"`
	Address2  string    `json:"address2,omitempty"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zipCode"`
	Country   string    `json:"country"`
	Phone     string    `json:"phone,omitempty"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot freezes the address fields for attachment to an order.
func (a ShippingAddress) Snapshot() ShippingSnapshot {
	return ShippingSnapshot{
		Nickname:  a.Nickname,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		ZipCode:   a.ZipCode,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}

// DefaultBilling mirrors the provider's current default card so profile and
// checkout screens never need a live provider round-trip to display it. It is
// re-synced whenever the provider-side default changes. The zero snapshot
// (empty CardID) means the profile has no cards.
type DefaultBilling struct {
	ProfileID string    `json:"profileId"`
	CardID    string    `json:"-"`
	FullName  string    `json:"fullName,omitempty"`
	Address1  string    `json:"address1,omitempty"`
	Address2  string    `json:"address2,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	ZipCode   string    `json:"zipCode,omitempty"`
	Country   string    `json:"country,omitempty"`
	ExpMonth  int       `json:"expMonth,omitempty"`
	ExpYear   int       `json:"expYear,omitempty"`
	Last4     string    `json:"last4,omitempty"`
	Brand     string    `json:"brand,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Empty reports whether the snapshot references no provider card.
func (b DefaultBilling) Empty() bool {
	return b.CardID == ""
}
