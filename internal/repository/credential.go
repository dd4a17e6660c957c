package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/identity"
)

const getCredentialByHashSQL = `SELECT token_hash, subject_id, email
	FROM credentials WHERE token_hash = $1 AND active = TRUE`

var _ identity.Repository = (*CredentialRepository)(nil)

// CredentialRepository provides credential lookups backed by PostgreSQL.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a CredentialRepository that uses the given pool.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// FindByTokenHash looks up an active credential by its HMAC-SHA256 hash.
func (r *CredentialRepository) FindByTokenHash(ctx context.Context, hash string) (*identity.Credential, error) {
	var cred identity.Credential
	err := r.pool.QueryRow(ctx, getCredentialByHashSQL, hash).Scan(
		&cred.TokenHash, &cred.SubjectID, &cred.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", err)
		}
		return nil, fmt.Errorf("finding credential by hash: %w", err)
	}
	return &cred, nil
}
