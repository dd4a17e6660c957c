package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/order"
)

type orderItemResponse struct {
	ProductID       int64           `json:"productId"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

type orderResponse struct {
	ID               string              `json:"id"`
	Total            decimal.Decimal     `json:"total"`
	Status           order.Status        `json:"status"`
	PaymentReference string              `json:"paymentReference,omitempty"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"createdAt"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), subject.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items := make([]orderItemResponse, len(o.Items))
		for j, item := range o.Items {
			items[j] = orderItemResponse{
				ProductID:       item.ProductID,
				Quantity:        item.Quantity,
				PriceAtPurchase: item.PriceAtPurchase,
			}
		}
		resp[i] = orderResponse{
			ID:               o.ID,
			Total:            o.Total,
			Status:           o.Status,
			PaymentReference: o.PaymentReference,
			Items:            items,
			CreatedAt:        o.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
