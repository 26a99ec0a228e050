package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivelous-store/internal/domain"
)

type productResponse struct {
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Family      string            `json:"family"`
	Description string            `json:"description,omitempty"`
	Variants    []variantResponse `json:"variants"`
}

type variantResponse struct {
	Size               string `json:"size"`
	PriceCents         int64  `json:"priceCents"`
	OriginalPriceCents int64  `json:"originalPriceCents"`
	OnSale             bool   `json:"onSale"`
	InStock            bool   `json:"inStock"`
}

func toProductResponse(p domain.Product) productResponse {
	out := productResponse{
		SKU:         p.SKU,
		Name:        p.Name,
		Slug:        p.Slug,
		Family:      p.Family,
		Description: p.Description,
		Variants:    make([]variantResponse, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, variantResponse{
			Size:               v.Size,
			PriceCents:         v.PriceCents(),
			OriginalPriceCents: v.OriginalPriceCents,
			OnSale:             v.OnSale(),
			InStock:            v.Stock > 0,
		})
	}
	return out
}

func (a *api) listProducts(c *gin.Context) {
	products, err := a.deps.Catalog.ListActive(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (a *api) getProduct(c *gin.Context) {
	p, err := a.deps.Catalog.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !p.Active {
		a.writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(*p))
}
