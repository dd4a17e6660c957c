package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/product"
)

// Service encapsulates cart reads and mutations. Every operation returns a
// fresh snapshot so clients always see the repriced cart.
type Service struct {
	carts    Repository
	products product.Repository
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products, now: time.Now}
}

// Snapshot materializes the user's cart into priced line items. An empty or
// not-yet-created cart yields zero totals, never an error.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	cartID, lines, discounts, err := s.carts.SnapshotData(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	snap := BuildSnapshot(cartID, lines, discounts, s.now())
	return &snap, nil
}

// AddItem adds quantity of a product to the cart, incrementing the existing
// line when one is already present.
func (s *Service) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*Snapshot, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if err := s.carts.UpsertItem(ctx, c.ID, productID, quantity); err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return s.Snapshot(ctx, userID)
}

// SetQuantity sets a line's quantity outright. Quantities above the
// product's current stock are rejected; zero or negative removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID string, productID int64, quantity int) (*Snapshot, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	if quantity <= 0 {
		if err := s.carts.RemoveItem(ctx, c.ID, productID); err != nil {
			return nil, errors.Wrap(err, "remove cart item")
		}
		return s.Snapshot(ctx, userID)
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, &StockLimitError{ProductID: productID, Available: p.Stock}
	}

	if err := s.carts.SetItemQuantity(ctx, c.ID, productID, quantity); err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}
	return s.Snapshot(ctx, userID)
}

// RemoveItem deletes a single line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID string, productID int64) (*Snapshot, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if err := s.carts.RemoveItem(ctx, c.ID, productID); err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	return s.Snapshot(ctx, userID)
}

// Clear deletes every line from the cart; the cart row itself persists.
func (s *Service) Clear(ctx context.Context, userID string) (*Snapshot, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if err := s.carts.Clear(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return s.Snapshot(ctx, userID)
}
