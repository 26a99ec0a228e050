package seed

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"drivelous-store/internal/domain"
	catalogrepo "drivelous-store/internal/repository/catalog"
)

func shirtVariants(priceCents int64, stock int) []domain.Variant {
	sizes := []string{"XS", "S", "M", "L", "XL"}
	variants := make([]domain.Variant, 0, len(sizes))
	for _, size := range sizes {
		variants = append(variants, domain.Variant{Size: size, OriginalPriceCents: priceCents, Stock: stock})
	}
	return variants
}

func salePrice(cents int64) *int64 { return &cents }

// Apply inserts catalog data for manual testing. Upserts keep it idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	repo := catalogrepo.NewPostgres(pool, log.New(io.Discard, "", 0))

	products := []domain.Product{
		{
			SKU:         "ALBUM-FIRST",
			Name:        "First Album",
			Slug:        "first-album",
			Family:      domain.FamilyAlbum,
			Description: "The debut record, on compact disc.",
			Active:      true,
			Variants:    []domain.Variant{{OriginalPriceCents: 1500, Stock: 40}},
		},
		{
			SKU:         "ALBUM-LIVE",
			Name:        "Live at the Armory",
			Slug:        "live-at-the-armory",
			Family:      domain.FamilyAlbum,
			Description: "Recorded over two nights in 2019.",
			Active:      true,
			Variants:    []domain.Variant{{OriginalPriceCents: 1800, SalePriceCents: salePrice(1200), Stock: 25}},
		},
		{
			SKU:         "SHIRT-LOGO",
			Name:        "Logo Tee",
			Slug:        "logo-tee",
			Family:      domain.FamilyShirt,
			Description: "Black cotton tee with the front logo print.",
			Active:      true,
			Variants:    shirtVariants(2500, 12),
		},
		{
			SKU:         "SHIRT-TOUR",
			Name:        "Tour Shirt 2019",
			Slug:        "tour-shirt-2019",
			Family:      domain.FamilyShirt,
			Description: "Tour dates on the back, while they last.",
			Active:      true,
			Variants:    shirtVariants(3000, 6),
		},
	}

	for _, p := range products {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}
	return nil
}
