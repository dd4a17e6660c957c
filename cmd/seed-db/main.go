// Command seed-db loads the demo catalog, discounts, and a test credential
// into the database. It is idempotent: rerunning updates rows in place.
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

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/identity"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/repository"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type discountJSON struct {
	Category string          `json:"category"`
	Percent  decimal.Decimal `json:"percent"`
}

type seedFile struct {
	Products  []productJSON  `json:"products"`
	Discounts []discountJSON `json:"discounts"`
}

const (
	upsertCategorySQL = `INSERT INTO categories (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

	upsertProductSQL = `INSERT INTO products (name, description, image, category_id, price, stock)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
    description = EXCLUDED.description,
    image = EXCLUDED.image,
    category_id = EXCLUDED.category_id,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock`

	insertDiscountSQL = `INSERT INTO category_discounts (category_id, discount_percent, is_active, starts_at)
SELECT $1, $2, TRUE, NOW()
WHERE NOT EXISTS (
    SELECT 1 FROM category_discounts
    WHERE category_id = $1 AND discount_percent = $2 AND is_active
)`

	upsertCredentialSQL = `INSERT INTO credentials (token_hash, subject_id, email, active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (token_hash) DO UPDATE SET
    subject_id = EXCLUDED.subject_id,
    email = EXCLUDED.email,
    active = TRUE`
)

func main() {
	var (
		databaseURL string
		seedPath    string
		token       string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to catalog seed JSON file")
	flag.StringVar(&token, "token", "", "bearer token to seed (or SHOP_SEED_TOKEN env)")
	flag.StringVar(&pepper, "identity-pepper", "", "HMAC pepper for token hashing (or SHOP_IDENTITY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if token == "" {
		token = os.Getenv("SHOP_SEED_TOKEN")
	}
	if token == "" {
		slog.Error("token is required: set --token or SHOP_SEED_TOKEN")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("SHOP_IDENTITY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, token, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, token, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading seed file", slog.String("path", seedPath))

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	categoryIDs, err := seedCatalog(ctx, pool, seed.Products)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedDiscounts(ctx, pool, categoryIDs, seed.Discounts); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := seedCredential(ctx, pool, token, pepper); err != nil {
		return errors.Wrap(err, "seed credential")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, products []productJSON) (map[string]int64, error) {
	slog.Info("upserting products", slog.Int("count", len(products)))

	categoryIDs := make(map[string]int64)
	for _, p := range products {
		id, ok := categoryIDs[p.Category]
		if !ok {
			if err := pool.QueryRow(ctx, upsertCategorySQL, p.Category).Scan(&id); err != nil {
				return nil, errors.Wrapf(err, "upsert category %s", p.Category)
			}
			categoryIDs[p.Category] = id
		}

		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.Name, p.Description, p.Image, id, p.Price, p.Stock,
		); err != nil {
			return nil, errors.Wrapf(err, "upsert product %s", p.Name)
		}

		slog.Info("upserted product", slog.String("name", p.Name), slog.String("category", p.Category))
	}

	return categoryIDs, nil
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool, categoryIDs map[string]int64, discounts []discountJSON) error {
	slog.Info("seeding category discounts", slog.Int("count", len(discounts)))

	for _, d := range discounts {
		id, ok := categoryIDs[d.Category]
		if !ok {
			return errors.Errorf("discount references unknown category %s", d.Category)
		}
		if _, err := pool.Exec(ctx, insertDiscountSQL, id, d.Percent); err != nil {
			return errors.Wrapf(err, "seed discount for category %s", d.Category)
		}

		slog.Info("seeded discount",
			slog.String("category", d.Category),
			slog.String("percent", d.Percent.String()),
		)
	}

	return nil
}

func seedCredential(ctx context.Context, pool *pgxpool.Pool, token, pepper string) error {
	slog.Info("seeding default credential")

	hash := identity.HashToken(token, []byte(pepper))
	if _, err := pool.Exec(ctx, upsertCredentialSQL, hash, "demo-user", "demo@example.com"); err != nil {
		return errors.Wrap(err, "upsert credential")
	}

	slog.Info("upserted credential", slog.String("subject", "demo-user"))

	return nil
}
