package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
)

type cartItemResponse struct {
	Product        productResponse `json:"product"`
	Quantity       int             `json:"quantity"`
	UnitFinalPrice decimal.Decimal `json:"unitFinalPrice"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	TakenAt    time.Time          `json:"takenAt"`
}

func toCartResponse(s *cart.Snapshot) cartResponse {
	resp := cartResponse{
		Items:      make([]cartItemResponse, len(s.Items)),
		TotalItems: s.TotalItems,
		TotalPrice: s.TotalPrice,
		TakenAt:    s.TakenAt,
	}
	for i, item := range s.Items {
		resp.Items[i] = cartItemResponse{
			Product:        toProductResponse(item.Product, nil),
			Quantity:       item.Quantity,
			UnitFinalPrice: item.UnitFinalPrice,
			Subtotal:       item.Subtotal,
		}
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	snap, err := h.carts.Snapshot(r.Context(), subject.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(snap))
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	snap, err := h.carts.AddItem(r.Context(), subject.ID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(snap))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	snap, err := h.carts.SetQuantity(r.Context(), subject.ID, productID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(snap))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	snap, err := h.carts.RemoveItem(r.Context(), subject.ID, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(snap))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	snap, err := h.carts.Clear(r.Context(), subject.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(snap))
}
