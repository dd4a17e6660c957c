// Command catalog-ingest imports products from gzipped supplier feeds. A
// listing is trusted only when its SKU appears in at least two independent
// feeds; single-feed listings are treated as noise and skipped.
//
// Feed lines are tab-separated: sku, name, category, price, stock.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 1_000_000
	feedFields    = 5
)

// listing is one parsed feed line.
type listing struct {
	sku      string
	name     string
	category string
	price    decimal.Decimal
	stock    int
}

// feedResult holds the listings from one feed whose SKUs matched another
// feed's bloom filter, keyed by SKU with a bitmask of matching feeds.
type feedResult struct {
	listings map[string]listing
	seenIn   map[string]uint
}

const (
	upsertCategorySQL = `INSERT INTO categories (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

	upsertListingSQL = `INSERT INTO products (name, description, image, category_id, price, stock)
VALUES ($1, '', '', $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock`
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier-feed-N.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("supplier-feed-%d.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: build one bloom filter of SKUs per feed, concurrently.
	slog.Info("pass 1: building SKU filters", slog.Int("feeds", numFeeds))

	filters, err := buildSKUFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build SKU filters")
	}

	// Pass 2: collect listings whose SKU appears in 2+ feeds.
	slog.Info("pass 2: cross-verifying listings")

	verified, err := verifyListings(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "verify listings")
	}

	slog.Info("verified listings", slog.Int("count", len(verified)))

	if len(verified) == 0 {
		slog.Info("no verified listings to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeListings(ctx, pool, verified); err != nil {
		return errors.Wrap(err, "write listings to database")
	}

	return nil
}

// buildSKUFilters creates one bloom filter per feed, concurrently.
func buildSKUFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamFeed(ctx, path, func(l listing) {
			filter.AddString(l.sku)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("listings", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_listings", count),
		)

		filters[idx] = filter
		return nil
	}
}

// verifyListings re-streams each feed and keeps listings whose SKU also
// appears in at least one OTHER feed's bloom filter.
func verifyListings(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]listing, error) {
	results := make([]feedResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(matchListingsInFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge feed bitmasks; keep SKUs verified by 2+ feeds. The earliest feed
	// in the list wins on conflicting listings for the same SKU.
	merged := make(map[string]uint)
	bysku := make(map[string]listing)
	for _, r := range results {
		for sku, mask := range r.seenIn {
			merged[sku] |= mask
			if _, ok := bysku[sku]; !ok {
				bysku[sku] = r.listings[sku]
			}
		}
	}

	var verified []listing
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			verified = append(verified, bysku[sku])
		}
	}

	return verified, nil
}

func matchListingsInFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []feedResult,
) func() error {
	return func() error {
		res := feedResult{
			listings: make(map[string]listing),
			seenIn:   make(map[string]uint),
		}
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamFeed(ctx, path, func(l listing) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("listings", count),
				)
			}

			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(l.sku) {
					res.listings[l.sku] = l
					res.seenIn[l.sku] |= feedBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_listings", count),
			slog.Int("matched", len(res.listings)),
		)

		results[idx] = res
		return nil
	}
}

// streamFeed opens a gzip-compressed feed and calls fn for each parseable
// line. Malformed lines are skipped, not fatal.
func streamFeed(ctx context.Context, path string, fn func(l listing)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l, ok := parseListing(scanner.Text()); ok {
			fn(l)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

func parseListing(line string) (listing, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != feedFields {
		return listing{}, false
	}

	price, err := decimal.NewFromString(fields[3])
	if err != nil || price.IsNegative() {
		return listing{}, false
	}
	stock, err := strconv.Atoi(fields[4])
	if err != nil || stock < 0 {
		return listing{}, false
	}
	if fields[0] == "" || fields[1] == "" || fields[2] == "" {
		return listing{}, false
	}

	return listing{
		sku:      fields[0],
		name:     fields[1],
		category: fields[2],
		price:    price,
		stock:    stock,
	}, true
}

// writeListings upserts all verified listings, creating categories on the
// fly.
func writeListings(ctx context.Context, pool *pgxpool.Pool, listings []listing) error {
	slog.Info("writing listings to database", slog.Int("count", len(listings)))

	categoryIDs := make(map[string]int64)
	for i, l := range listings {
		id, ok := categoryIDs[l.category]
		if !ok {
			if err := pool.QueryRow(ctx, upsertCategorySQL, l.category).Scan(&id); err != nil {
				return errors.Wrapf(err, "upsert category %s", l.category)
			}
			categoryIDs[l.category] = id
		}

		if _, err := pool.Exec(ctx, upsertListingSQL, l.name, id, l.price, l.stock); err != nil {
			return errors.Wrapf(err, "upsert listing %s", l.sku)
		}

		if (i+1)%100 == 0 || i+1 == len(listings) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(listings)))
		}
	}

	return nil
}
