// Package handler exposes the REST API. Handlers translate HTTP to domain
// calls and map domain errors onto status codes; no business rules live
// here.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/checkout"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/identity"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/order"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/product"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/review"
)

// Handler bundles the API dependencies.
type Handler struct {
	products product.Repository
	reviews  review.Repository
	orders   order.Repository
	carts    *cart.Service
	checkout *checkout.Coordinator
	verifier identity.Verifier
}

// New creates the API handler.
func New(
	products product.Repository,
	reviews review.Repository,
	orders order.Repository,
	carts *cart.Service,
	coordinator *checkout.Coordinator,
	verifier identity.Verifier,
) *Handler {
	return &Handler{
		products: products,
		reviews:  reviews,
		orders:   orders,
		carts:    carts,
		checkout: coordinator,
		verifier: verifier,
	}
}

// Routes registers every API route on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.Handle("GET /api/cart", h.auth(h.getCart))
	mux.Handle("POST /api/cart/items", h.auth(h.addCartItem))
	mux.Handle("PUT /api/cart/items/{productID}", h.auth(h.setCartItemQuantity))
	mux.Handle("DELETE /api/cart/items/{productID}", h.auth(h.removeCartItem))
	mux.Handle("DELETE /api/cart", h.auth(h.clearCart))

	mux.Handle("POST /api/checkout/payment-intent", h.auth(h.createPaymentIntent))
	mux.Handle("POST /api/checkout/finalize", h.auth(h.finalizeCheckout))

	mux.Handle("GET /api/orders", h.auth(h.listOrders))
	mux.Handle("POST /api/reviews", h.auth(h.createReview))

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondError maps domain errors to HTTP statuses. Transient failures log
// the cause but surface a generic message; client errors echo the domain
// error text.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooSmall   *checkout.OrderTooSmallError
		noStock    *checkout.InsufficientStockError
		stockLimit *cart.StockLimitError
		gateway    *checkout.GatewayError
		persist    *checkout.PersistenceError
	)

	switch {
	case errors.Is(err, checkout.ErrUnauthorized), errors.Is(err, identity.ErrInvalidCredential):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, product.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, checkout.ErrMissingReference),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, review.ErrInvalidRating):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &tooSmall):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, checkout.ErrPaymentNotConfirmed):
		respondJSON(w, http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.As(err, &noStock), errors.As(err, &stockLimit):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &gateway):
		zctx.From(r.Context()).Warn("Payment gateway unavailable", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "payment gateway unavailable"})
	case errors.As(err, &persist):
		zctx.From(r.Context()).Error("Persistence failure", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		zctx.From(r.Context()).Error("Unhandled error", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
