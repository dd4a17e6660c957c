// Package cart models a user's shopping cart and materializes it into
// priced snapshots. A cart is created lazily on first access and lives until
// checkout succeeds; it never touches orders or stock itself.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/product"
)

// ErrInvalidQuantity is returned when a cart mutation carries a non-positive
// quantity where a positive one is required.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// StockLimitError indicates a requested cart quantity exceeds the product's
// available stock.
type StockLimitError struct {
	ProductID int64
	Available int
}

func (e *StockLimitError) Error() string {
	return errors.Errorf("only %d items available for product %d", e.Available, e.ProductID).Error()
}

// Cart is one user's cart row. Items live in their own table with at most
// one row per (cart, product).
type Cart struct {
	ID        int64
	UserID    string
	CreatedAt time.Time
}

// Line is an unpriced cart line: the product as currently stored plus the
// requested quantity.
type Line struct {
	Product  product.Product
	Quantity int
}

// Item is a priced snapshot line. UnitFinalPrice is the product's final
// price at snapshot time; Subtotal = Quantity * UnitFinalPrice.
type Item struct {
	Product        product.Product
	Quantity       int
	UnitFinalPrice decimal.Decimal
	Subtotal       decimal.Decimal
}

// Snapshot is the cart materialized into priced line items at a single
// evaluation instant.
type Snapshot struct {
	CartID     int64
	Items      []Item
	TotalItems int
	TotalPrice decimal.Decimal
	TakenAt    time.Time
}

// Empty reports whether the snapshot holds no items.
func (s *Snapshot) Empty() bool { return len(s.Items) == 0 }

// Repository defines cart persistence. SnapshotData must perform one
// consistent read of cart, items, products, and candidate discounts so a
// snapshot is never priced against a discount window that has since moved.
type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	SnapshotData(ctx context.Context, userID string) (cartID int64, lines []Line, discounts []pricing.Discount, err error)
	UpsertItem(ctx context.Context, cartID, productID int64, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID int64) error
	Clear(ctx context.Context, cartID int64) error
}
