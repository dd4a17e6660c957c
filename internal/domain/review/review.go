// Package review models product reviews.
package review

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrInvalidRating is returned when a rating falls outside the 1–5 range.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Review is one user's review of a product.
type Review struct {
	ID        int64
	ProductID int64
	UserID    string
	Username  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Repository defines review persistence.
type Repository interface {
	Create(ctx context.Context, r *Review) (*Review, error)
	// ListByProductIDs returns reviews for the given products keyed by
	// product id, newest first, fetched in a single query.
	ListByProductIDs(ctx context.Context, productIDs []int64) (map[int64][]Review, error)
}

// New validates and builds a review ready for persistence.
func New(productID int64, userID, username string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	return &Review{
		ProductID: productID,
		UserID:    userID,
		Username:  username,
		Rating:    rating,
		Comment:   comment,
	}, nil
}
