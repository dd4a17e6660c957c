package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/review"
)

type createReviewRequest struct {
	ProductID int64  `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.products.GetByID(r.Context(), req.ProductID); err != nil {
		respondError(w, r, err)
		return
	}

	rev, err := review.New(req.ProductID, subject.ID, subject.Username(), req.Rating, req.Comment)
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := h.reviews.Create(r.Context(), rev)
	if err != nil {
		respondError(w, r, errors.Wrap(err, "create review"))
		return
	}

	respondJSON(w, http.StatusCreated, reviewResponse{
		ID:        created.ID,
		Username:  created.Username,
		Rating:    created.Rating,
		Comment:   created.Comment,
		CreatedAt: created.CreatedAt,
	})
}
