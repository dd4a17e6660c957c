package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/checkout"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/order"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, total_amount, status, payment_reference)
		VALUES ($1, $2, $3, $4, $5)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)`

	// Conditional decrement: refuses to go below zero so two confirmed
	// payments for the last unit cannot both succeed.
	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	orderIDByReferenceSQL = `SELECT id FROM orders WHERE payment_reference = $1`

	listOrdersByUserSQL = `SELECT id, user_id, total_amount, status, COALESCE(payment_reference, ''), created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listOrderItemsSQL = `SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	// Default name PostgreSQL gives the UNIQUE constraint on
	// orders.payment_reference.
	paymentReferenceConstraint = "orders_payment_reference_key"
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ checkout.Store   = (*CheckoutStore)(nil)
	_ checkout.StoreTx = (*checkoutTx)(nil)
)

// OrderRepository implements the order read side backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// ListByUser returns the user's orders newest first, with items fetched in
// a single batched query.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}

	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders, nil
}

// CheckoutStore implements checkout.Store: it opens the coordinator's
// transaction and exposes the one pool-level read the idempotent retry path
// needs after its own transaction rolled back.
type CheckoutStore struct {
	pool *pgxpool.Pool
}

// NewCheckoutStore returns a CheckoutStore that uses the given pool.
func NewCheckoutStore(pool *pgxpool.Pool) *CheckoutStore {
	return &CheckoutStore{pool: pool}
}

// Begin opens the checkout transaction.
func (s *CheckoutStore) Begin(ctx context.Context) (checkout.StoreTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning checkout transaction: %w", err)
	}
	return &checkoutTx{tx: tx}, nil
}

// OrderIDByPaymentReference returns the committed order id for a payment
// reference, or empty when none exists.
func (s *CheckoutStore) OrderIDByPaymentReference(ctx context.Context, reference string) (string, error) {
	return orderIDByReference(ctx, s.pool, reference)
}

// checkoutTx runs every checkout store operation on the one open pgx
// transaction; it never opens its own.
type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) CartLines(ctx context.Context, userID string) (int64, []cart.Line, error) {
	return readCartLines(ctx, t.tx, userID)
}

func (t *checkoutTx) DiscountsForCategories(ctx context.Context, categoryIDs []int64) ([]pricing.Discount, error) {
	return readDiscounts(ctx, t.tx, categoryIDs)
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Total, string(o.Status), nullable(o.PaymentReference),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == paymentReferenceConstraint {
			return checkout.ErrDuplicatePaymentReference
		}
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	return nil
}

func (t *checkoutTx) InsertOrderItem(ctx context.Context, item *order.Item) error {
	_, err := t.tx.Exec(ctx, insertOrderItemSQL,
		item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase,
	)
	if err != nil {
		return fmt.Errorf("inserting order item for product %d: %w", item.ProductID, err)
	}
	return nil
}

func (t *checkoutTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return &checkout.InsufficientStockError{ProductID: productID, Requested: quantity}
	}
	return nil
}

func (t *checkoutTx) ClearCartItems(ctx context.Context, cartID int64) error {
	_, err := t.tx.Exec(ctx, clearCartSQL, cartID)
	if err != nil {
		return fmt.Errorf("clearing cart %d: %w", cartID, err)
	}
	return nil
}

func (t *checkoutTx) OrderIDByPaymentReference(ctx context.Context, reference string) (string, error) {
	return orderIDByReference(ctx, t.tx, reference)
}

func (t *checkoutTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction; after a successful commit it is a no-op.
func (t *checkoutTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back checkout transaction: %w", err)
	}
	return nil
}

func orderIDByReference(ctx context.Context, q DBTX, reference string) (string, error) {
	var id string
	err := q.QueryRow(ctx, orderIDByReferenceSQL, reference).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("finding order by payment reference: %w", err)
	}
	return id, nil
}

// nullable maps an empty string to SQL NULL so the unique index on
// payment_reference ignores orders that never got one.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Total, &status, &o.PaymentReference, &o.CreatedAt)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtPurchase)
	return it, err
}
