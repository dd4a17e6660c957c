package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Price is the
// base price before any category discount; Stock is decremented only by the
// checkout coordinator.
type Product struct {
	ID          int64
	Name        string
	Description string
	Image       string
	CategoryID  int64
	Price       decimal.Decimal
	Stock       int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
}
