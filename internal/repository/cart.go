package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
)

const (
	getCartByUserSQL = `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`

	// Lazy creation: first access inserts the cart, concurrent first
	// accesses collapse onto the same row.
	createCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at`

	cartLinesSQL = `SELECT p.id, p.name, p.description, p.image, p.category_id, p.price, p.stock, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	discountsForCategoriesSQL = `SELECT id, category_id, discount_percent, is_active, starts_at, ends_at
		FROM category_discounts
		WHERE category_id = ANY($1) AND is_active = TRUE`

	upsertCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE cart_id = $1 AND product_id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the user's cart, creating it on first access.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartByUserSQL, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	err = r.pool.QueryRow(ctx, createCartSQL, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// SnapshotData reads the cart, its lines, and the candidate discounts for
// the involved categories in one repeatable-read transaction, so a snapshot
// is never priced against state that moved mid-read. A user without a cart
// yields a zero cart id and no lines.
func (r *CartRepository) SnapshotData(ctx context.Context, userID string) (int64, []cart.Line, []pricing.Discount, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return 0, nil, nil, fmt.Errorf("beginning snapshot read: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cartID, lines, err := readCartLines(ctx, tx, userID)
	if err != nil {
		return 0, nil, nil, err
	}
	if len(lines) == 0 {
		return cartID, nil, nil, tx.Commit(ctx)
	}

	discounts, err := readDiscounts(ctx, tx, lineCategoryIDs(lines))
	if err != nil {
		return 0, nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, nil, fmt.Errorf("committing snapshot read: %w", err)
	}
	return cartID, lines, discounts, nil
}

// UpsertItem adds quantity to a cart line, creating it when absent.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := r.pool.Exec(ctx, upsertCartItemSQL, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}
	return nil
}

// SetItemQuantity sets a line's quantity outright.
func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := r.pool.Exec(ctx, setCartItemQuantitySQL, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart item: %w", err)
	}
	return nil
}

// RemoveItem deletes a single cart line.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID int64) error {
	_, err := r.pool.Exec(ctx, removeCartItemSQL, cartID, productID)
	if err != nil {
		return fmt.Errorf("removing cart item: %w", err)
	}
	return nil
}

// Clear deletes every line from the cart.
func (r *CartRepository) Clear(ctx context.Context, cartID int64) error {
	_, err := r.pool.Exec(ctx, clearCartSQL, cartID)
	if err != nil {
		return fmt.Errorf("clearing cart %d: %w", cartID, err)
	}
	return nil
}

// readCartLines resolves the user's cart id and loads its unpriced lines on
// the given handle. Shared between the snapshot read path and the checkout
// transaction.
func readCartLines(ctx context.Context, q DBTX, userID string) (int64, []cart.Line, error) {
	var cartID int64
	err := q.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	rows, err := q.Query(ctx, cartLinesSQL, cartID)
	if err != nil {
		return 0, nil, fmt.Errorf("reading cart lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return 0, nil, fmt.Errorf("reading cart lines: %w", err)
	}
	return cartID, lines, nil
}

// readDiscounts loads active candidate discounts for the given categories;
// time-window evaluation stays with the pricing engine.
func readDiscounts(ctx context.Context, q DBTX, categoryIDs []int64) ([]pricing.Discount, error) {
	rows, err := q.Query(ctx, discountsForCategoriesSQL, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("reading discounts: %w", err)
	}
	discounts, err := pgx.CollectRows(rows, scanDiscount)
	if err != nil {
		return nil, fmt.Errorf("reading discounts: %w", err)
	}
	return discounts, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.Product.ID, &l.Product.Name, &l.Product.Description, &l.Product.Image,
		&l.Product.CategoryID, &l.Product.Price, &l.Product.Stock, &l.Quantity,
	)
	return l, err
}

func scanDiscount(row pgx.CollectableRow) (pricing.Discount, error) {
	var d pricing.Discount
	err := row.Scan(&d.ID, &d.CategoryID, &d.Percent, &d.Active, &d.StartsAt, &d.EndsAt)
	return d, err
}

func lineCategoryIDs(lines []cart.Line) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.Product.CategoryID]; ok {
			continue
		}
		seen[l.Product.CategoryID] = struct{}{}
		ids = append(ids, l.Product.CategoryID)
	}
	return ids
}
