// Package identity verifies bearer credentials into subjects. The rest of
// the system trusts the verified subject id as the user id; how credentials
// are minted is the identity provider's business, not ours.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
)

// ErrInvalidCredential is returned when a bearer credential cannot be
// resolved to an active subject.
var ErrInvalidCredential = errors.New("invalid credential")

// Subject is a verified caller identity.
type Subject struct {
	ID    string
	Email string
}

// Username derives a display name from the subject's email local part,
// falling back to the subject id when no email is on record.
func (s *Subject) Username() string {
	if s.Email != "" {
		if at := strings.IndexByte(s.Email, '@'); at > 0 {
			return s.Email[:at]
		}
		return s.Email
	}
	return s.ID
}

// Credential is a stored credential row: the HMAC hash of the bearer token
// plus the subject it authenticates.
type Credential struct {
	TokenHash string
	SubjectID string
	Email     string
}

// Repository provides credential lookup by token hash.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*Credential, error)
}

// Verifier resolves a bearer credential to a verified subject.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Subject, error)
}

var _ Verifier = (*HMACVerifier)(nil)

// HMACVerifier verifies bearer tokens by computing their HMAC-SHA256 with a
// server-side pepper and looking the hash up in the credential store.
type HMACVerifier struct {
	repo   Repository
	pepper []byte
}

// NewHMACVerifier creates an HMACVerifier with the given repository and
// HMAC pepper.
func NewHMACVerifier(repo Repository, pepper []byte) *HMACVerifier {
	return &HMACVerifier{repo: repo, pepper: pepper}
}

// HashToken computes the hex-encoded HMAC-SHA256 of a token. Exposed so the
// seed tool stores the same hash the verifier computes.
func HashToken(token string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates a bearer token, performing a constant-time comparison
// against the stored hash to prevent timing side-channels.
func (v *HMACVerifier) Verify(ctx context.Context, token string) (*Subject, error) {
	if token == "" {
		return nil, ErrInvalidCredential
	}

	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(token))
	hash := mac.Sum(nil)

	cred, err := v.repo.FindByTokenHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, ErrInvalidCredential
	}

	storedBytes, err := hex.DecodeString(cred.TokenHash)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return nil, ErrInvalidCredential
	}

	return &Subject{ID: cred.SubjectID, Email: cred.Email}, nil
}
