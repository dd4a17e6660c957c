// Package order models committed orders. Orders and their items are created
// exactly once per successful checkout and are immutable afterwards except
// for status transitions performed by the checkout coordinator.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Order is a committed customer order. PaymentReference is the
// gateway-issued identifier; once attached to a committed order it is
// unique system-wide and anchors checkout idempotency.
type Order struct {
	ID               string
	UserID           string
	Total            decimal.Decimal
	Status           Status
	PaymentReference string
	Items            []Item
	CreatedAt        time.Time
}

// Item is one order line. PriceAtPurchase is the final unit price locked at
// checkout time and never recomputed.
type Item struct {
	ID              int64
	OrderID         string
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Repository defines the read side of order persistence, used by the order
// history API. Writes happen only through the checkout store.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
