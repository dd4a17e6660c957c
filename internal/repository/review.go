package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/review"
)

const (
	insertReviewSQL = `INSERT INTO reviews (product_id, user_id, username, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, product_id, user_id, username, rating, comment, created_at`

	listReviewsByProductsSQL = `SELECT id, product_id, user_id, username, rating, comment, created_at
		FROM reviews WHERE product_id = ANY($1) ORDER BY created_at DESC`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create persists a new review and returns it with its assigned id.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) (*review.Review, error) {
	rows, err := r.pool.Query(ctx, insertReviewSQL,
		rv.ProductID, rv.UserID, rv.Username, rv.Rating, rv.Comment,
	)
	if err != nil {
		return nil, fmt.Errorf("creating review: %w", err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, scanReview)
	if err != nil {
		return nil, fmt.Errorf("creating review: %w", err)
	}
	return &created, nil
}

// ListByProductIDs returns reviews grouped by product id, newest first.
func (r *ReviewRepository) ListByProductIDs(ctx context.Context, productIDs []int64) (map[int64][]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsByProductsSQL, productIDs)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(rows, scanReview)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}

	grouped := make(map[int64][]review.Review, len(productIDs))
	for _, rv := range reviews {
		grouped[rv.ProductID] = append(grouped[rv.ProductID], rv)
	}
	return grouped, nil
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var rv review.Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Username, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}
