package cli

import (
	"errors"
	"fmt"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var sampleProducts = []*model.Product{
	{ID: "polo-sporting-stretch", Name: "Polo Sporting Stretch Shirt", Slug: "polo-sporting-stretch-shirt", Image: "/images/sample-products/p1-1.jpg", Price: decimal.RequireFromString("59.99"), Stock: 5},
	{ID: "brooks-brothers-long-sleeved", Name: "Brooks Brothers Long Sleeved Shirt", Slug: "brooks-brothers-long-sleeved-shirt", Image: "/images/sample-products/p2-1.jpg", Price: decimal.RequireFromString("85.90"), Stock: 10},
	{ID: "tommy-hilfiger-classic-fit", Name: "Tommy Hilfiger Classic Fit Dress Shirt", Slug: "tommy-hilfiger-classic-fit-dress-shirt", Image: "/images/sample-products/p3-1.jpg", Price: decimal.RequireFromString("99.95"), Stock: 0},
	{ID: "calvin-klein-slim-fit", Name: "Calvin Klein Slim Fit Stretch Shirt", Slug: "calvin-klein-slim-fit-stretch-shirt", Image: "/images/sample-products/p4-1.jpg", Price: decimal.RequireFromString("39.95"), Stock: 10},
	{ID: "polo-ralph-lauren-oxford", Name: "Polo Ralph Lauren Oxford Shirt", Slug: "polo-ralph-lauren-oxford-shirt", Image: "/images/sample-products/p5-1.jpg", Price: decimal.RequireFromString("79.99"), Stock: 6},
}

type SeedOptions struct {
	*RootOptions
	CartUser string
}

// NewSeedCommand creates the seed command. Carts are normally filled by
// the storefront UI; --cart-user fills one so checkout can be exercised.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample catalogue, and optionally a cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := client.InitDBClient(opts.Config.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			productRepo := repository.NewProductRepository(db)
			if err := productRepo.Seed(ctx, sampleProducts); err != nil {
				return fmt.Errorf("seed products: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(sampleProducts))

			if opts.CartUser == "" {
				return nil
			}

			cartRepo := repository.NewCartRepository(db)
			cart, err := cartRepo.GetByUserID(ctx, opts.CartUser)
			if errors.Is(err, repository.ErrCartNotFound) {
				cart, err = &model.Cart{ID: uuid.NewString(), UserID: opts.CartUser}, nil
			}
			if err != nil {
				return fmt.Errorf("get cart: %w", err)
			}

			for _, p := range sampleProducts[:2] {
				cart.Items = append(cart.Items, &model.CartItem{
					CartID:    cart.ID,
					ProductID: p.ID,
					Name:      p.Name,
					Slug:      p.Slug,
					Image:     p.Image,
					Price:     p.Price,
					Quantity:  1,
				})
			}
			if err := cartRepo.Save(ctx, cart); err != nil {
				return fmt.Errorf("save cart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "filled cart of %s\n", opts.CartUser)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.CartUser, "cart-user", "", "also fill this user's cart")

	return cmd
}
