package domain

import "time"

// Product families carried by the catalog. Albums have a single unsized
// variant; shirts carry one variant per size.
const (
	FamilyAlbum = "album"
	FamilyShirt = "shirt"
)

type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Family      string    `json:"family"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Variant is one sellable unit of a product. Size is the variant key; it is
// empty for albums and one of XS/S/M/L/XL for shirts.
type Variant struct {
	ID                 string `json:"id"`
	ProductID          string `json:"productId"`
	Size               string `json:"size,omitempty"`
	OriginalPriceCents int64  `json:"originalPriceCents"`
	SalePriceCents     *int64 `json:"salePriceCents,omitempty"`
	Stock              int    `json:"stock"`
}

// PriceCents returns the sale price when one is set, else the original price.
func (v Variant) PriceCents() int64 {
	if v.SalePriceCents != nil {
		return *v.SalePriceCents
	}
	return v.OriginalPriceCents
}

// OnSale reports whether the variant currently carries a sale price.
func (v Variant) OnSale() bool {
	return v.SalePriceCents != nil
}
