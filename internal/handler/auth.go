package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/identity"
)

type subjectKey struct{}

// subjectFromContext returns the verified subject, or nil outside an
// authenticated route.
func subjectFromContext(ctx context.Context) *identity.Subject {
	s, _ := ctx.Value(subjectKey{}).(*identity.Subject)
	return s
}

// auth verifies the bearer credential and stores the subject in the request
// context before calling next.
func (h *Handler) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		subject, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey{}, subject)
		next(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}
