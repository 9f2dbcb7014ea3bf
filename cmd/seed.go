package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sockshop-e2e/api/schemas"
	"github.com/xkilldash9x/sockshop-e2e/internal/observability"
	"github.com/xkilldash9x/sockshop-e2e/internal/store"
)

const defaultSeedSource = "e2e-seed"

// newSeedCmd loads a deterministic catalogue and customer set into the test
// database, or removes a previous seed run.
func newSeedCmd(a *app) *cobra.Command {
	var (
		source  string
		cleanup bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seeds the test database with sample products and customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			ctx := cmd.Context()

			db, err := store.Connect(ctx, a.cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if cleanup {
				removed, err := db.CleanupBySource(ctx, source)
				if err != nil {
					return err
				}
				fmt.Printf("removed %d rows seeded as %q\n", removed, source)
				return nil
			}

			products := sampleProducts()
			if err := db.SeedProducts(ctx, source, products); err != nil {
				return err
			}

			users := sampleUsers(source)
			if err := db.SeedUsers(ctx, users); err != nil {
				return err
			}

			total, err := db.CountProducts(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d products and %d customers (catalogue now holds %d products)\n",
				len(products), len(users), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", defaultSeedSource, "marker stamped on seeded rows, used by --cleanup")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "remove rows from a previous seed run instead of inserting")
	return cmd
}

// sampleProducts builds the fixed catalogue the UI scenarios rely on. SKUs
// and slugs stay stable so page objects can address products by name.
func sampleProducts() []schemas.Product {
	specs := []struct {
		name, description, category, sku string
		cents                            int64
	}{
		{"Classic Cotton Crew Socks", "Everyday cotton crew socks with a reinforced heel and toe.", "casual", "SOCK-COT-001", 999},
		{"Merino Wool Hiking Socks", "Cushioned merino wool socks built for long trail days.", "outdoor", "SOCK-WOL-001", 1899},
		{"Performance Running Socks", "Lightweight moisture-wicking socks with arch support.", "sport", "SOCK-RUN-001", 1499},
		{"Striped Dress Socks", "Combed cotton dress socks with a subtle stripe pattern.", "formal", "SOCK-DRS-001", 1299},
		{"Thermal Winter Socks", "Heavyweight thermal socks for sub-zero conditions.", "outdoor", "SOCK-THM-001", 2199},
	}

	products := make([]schemas.Product, 0, len(specs))
	for _, s := range specs {
		p := schemas.NewSimpleProduct(s.name, s.description, s.category, s.sku, schemas.NewMoney(s.cents, schemas.USD))
		products = append(products, *p)
	}
	return products
}

// sampleUsers builds verified customer accounts tagged with the seed source
// so cleanup can find them again.
func sampleUsers(source string) []*schemas.User {
	specs := []struct {
		username, email, first, last string
	}{
		{"test_shopper", "test.shopper@example.com", "Test", "Shopper"},
		{"returning_customer", "returning.customer@example.com", "Riley", "Parker"},
		{"bulk_buyer", "bulk.buyer@example.com", "Morgan", "Vale"},
	}

	users := make([]*schemas.User, 0, len(specs))
	for _, s := range specs {
		u := schemas.NewUser(s.username, s.email, s.first, s.last)
		u.Audit.Source = source
		users = append(users, u)
	}
	return users
}
