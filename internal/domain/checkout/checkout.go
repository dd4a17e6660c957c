// Package checkout turns an externally confirmed payment into a durable,
// price-correct, inventory-consistent order exactly once. The coordinator is
// the sole writer of orders and the sole decrementer of stock; everything it
// does happens inside one explicitly owned store transaction.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/order"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
)

// Sentinel errors for checkout preconditions. These are client errors:
// callers must not retry them blindly.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMissingReference    = errors.New("payment reference required")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrEmptyCart           = errors.New("cart is empty")
)

// ErrDuplicatePaymentReference is returned by StoreTx.InsertOrder when the
// payment reference is already attached to a committed order. The
// coordinator treats it as a successful idempotent retry, never surfacing
// it to callers.
var ErrDuplicatePaymentReference = errors.New("payment reference already recorded")

// OrderTooSmallError indicates the cart total is below the configured
// minimum order value.
type OrderTooSmallError struct {
	Total   decimal.Decimal
	Minimum decimal.Decimal
}

func (e *OrderTooSmallError) Error() string {
	return fmt.Sprintf("order total %s is below the minimum order value of %s", e.Total, e.Minimum)
}

// InsufficientStockError indicates a conditional stock decrement found fewer
// units than the purchase requires. The transaction is rolled back.
type InsufficientStockError struct {
	ProductID int64
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Requested)
}

// GatewayError wraps a transport-level payment gateway failure. Transient:
// nothing was committed, callers may retry with the same reference.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string { return "payment gateway unavailable: " + e.Err.Error() }
func (e *GatewayError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure that aborted the transaction.
// Transient: no partial state persists, callers may retry with the same
// reference and will land on the idempotent path if an earlier attempt
// actually committed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "checkout transaction aborted: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Result is the outcome of a finalize call. AlreadyProcessed marks the
// idempotent success path: the order was committed by a previous invocation
// and nothing was mutated by this one.
type Result struct {
	OrderID          string
	AlreadyProcessed bool
}

// IntentResult is the outcome of initiating a payment.
type IntentResult struct {
	ClientSecret string
	Amount       int64
	Currency     string
}

// StoreTx is one open checkout transaction. Every operation executes
// against this handle; none opens its own transaction. Rollback after a
// successful Commit must be a no-op so it can be deferred unconditionally.
type StoreTx interface {
	// CartLines returns the user's cart id and unpriced lines. A missing
	// cart yields a zero id and no lines, not an error.
	CartLines(ctx context.Context, userID string) (int64, []cart.Line, error)
	// DiscountsForCategories returns all candidate discounts for the given
	// categories; window evaluation is the pricing engine's job.
	DiscountsForCategories(ctx context.Context, categoryIDs []int64) ([]pricing.Discount, error)
	// InsertOrder persists the order row. A conflicting payment reference
	// yields ErrDuplicatePaymentReference.
	InsertOrder(ctx context.Context, o *order.Order) error
	InsertOrderItem(ctx context.Context, item *order.Item) error
	// DecrementStock subtracts quantity only when at least that much stock
	// remains, returning InsufficientStockError otherwise.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	ClearCartItems(ctx context.Context, cartID int64) error
	OrderIDByPaymentReference(ctx context.Context, reference string) (string, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens checkout transactions and answers the one read the
// coordinator needs outside a transaction of its own.
type Store interface {
	Begin(ctx context.Context) (StoreTx, error)
	OrderIDByPaymentReference(ctx context.Context, reference string) (string, error)
}
