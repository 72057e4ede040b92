// Command seed-db loads the catalog from a JSON file and seeds demo coupons,
// a demo address, and a demo cart so the API can be exercised end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sneha1789/timeless-tribe-checkout/internal/storage/postgres"
)

type productJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Variants []struct {
		Name  string `json:"name"`
		Sizes []struct {
			Name          string          `json:"name"`
			Price         decimal.Decimal `json:"price"`
			OriginalPrice decimal.Decimal `json:"originalPrice"`
			Stock         int             `json:"stock"`
		} `json:"sizes"`
	} `json:"variants"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		demoUser     string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&demoUser, "demo-user", "", "user id to seed a demo cart and address for (optional)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, demoUser); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, demoUser string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if demoUser != "" {
		if err := seedDemoUser(ctx, pool, demoUser); err != nil {
			return errors.Wrapf(err, "seed demo data for user %s", demoUser)
		}
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, image)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image = EXCLUDED.image`

const upsertSizeSQL = `
INSERT INTO product_sizes (product_id, variant_name, size_name, price, original_price, stock)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (product_id, variant_name, size_name) DO UPDATE SET
    price = EXCLUDED.price,
    original_price = EXCLUDED.original_price,
    stock = EXCLUDED.stock`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Image); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for _, v := range p.Variants {
			for _, s := range v.Sizes {
				if _, err := pool.Exec(ctx, upsertSizeSQL,
					p.ID, v.Name, s.Name, s.Price, s.OriginalPrice, s.Stock,
				); err != nil {
					return errors.Wrapf(err, "upsert size %s/%s/%s", p.ID, v.Name, s.Name)
				}
			}
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertCouponSQL = `
INSERT INTO coupons (code, discount_type, value, max_discount, min_purchase, description, active)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)
ON CONFLICT (code) DO UPDATE SET
    discount_type = EXCLUDED.discount_type,
    value = EXCLUDED.value,
    max_discount = EXCLUDED.max_discount,
    min_purchase = EXCLUDED.min_purchase,
    description = EXCLUDED.description,
    active = TRUE`

type couponSeed struct {
	code         string
	discountType string
	value        int64
	maxDiscount  int64
	minPurchase  int64
	description  string
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	coupons := []couponSeed{
		{
			code:         "WELCOME10",
			discountType: "percentage",
			value:        10,
			maxDiscount:  300,
			minPurchase:  1000,
			description:  "Welcome: 10% off, up to Rs. 300",
		},
		{
			code:         "SAVE500",
			discountType: "fixed",
			value:        500,
			minPurchase:  3000,
			description:  "Rs. 500 off orders above Rs. 3000",
		},
		{
			code:         "FESTIVE15",
			discountType: "percentage",
			value:        15,
			maxDiscount:  750,
			minPurchase:  2500,
			description:  "Festive season: 15% off, up to Rs. 750",
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.discountType,
			decimal.NewFromInt(c.value),
			decimal.NewFromInt(c.maxDiscount),
			decimal.NewFromInt(c.minPurchase),
			c.description,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}

	return nil
}

const upsertAddressSQL = `
INSERT INTO addresses (id, user_id, full_name, phone, street, area, city, is_default)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
ON CONFLICT (id) DO NOTHING`

const upsertCartItemSQL = `
INSERT INTO cart_items (id, user_id, product_id, variant_name, size_name, quantity)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity`

// seedDemoUser creates one address and a small cart for the given user so a
// checkout can be driven straight from the seeded data.
func seedDemoUser(ctx context.Context, pool *pgxpool.Pool, userID string) error {
	slog.Info("seeding demo address and cart", slog.String("user_id", userID))

	if _, err := pool.Exec(ctx, upsertAddressSQL,
		"addr-"+userID, userID, "Demo User", "9800000000",
		"Baluwatar Marg 12", "Baluwatar", "Kathmandu",
	); err != nil {
		return errors.Wrap(err, "upsert demo address")
	}

	var productID, variantName, sizeName string
	row := pool.QueryRow(ctx,
		`SELECT product_id, variant_name, size_name FROM product_sizes WHERE stock > 0 LIMIT 1`)
	if err := row.Scan(&productID, &variantName, &sizeName); err != nil {
		return errors.Wrap(err, "pick a seeded product for the demo cart")
	}

	if _, err := pool.Exec(ctx, upsertCartItemSQL,
		"cart-"+userID+"-1", userID, productID, variantName, sizeName, 1,
	); err != nil {
		return errors.Wrap(err, "upsert demo cart item")
	}

	return nil
}
