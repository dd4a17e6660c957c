package handler

import (
	"net/http"
)

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	intent, err := h.checkout.InitiatePayment(r.Context(), subject.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, paymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	})
}

type finalizeRequest struct {
	PaymentReference string `json:"paymentReference"`
}

type finalizeResponse struct {
	OrderID          string `json:"orderId"`
	AlreadyProcessed bool   `json:"alreadyProcessed"`
}

func (h *Handler) finalizeCheckout(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromContext(r.Context())

	var req finalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.checkout.Finalize(r.Context(), subject.ID, req.PaymentReference)
	if err != nil {
		respondError(w, r, err)
		return
	}

	code := http.StatusCreated
	if res.AlreadyProcessed {
		code = http.StatusOK
	}
	respondJSON(w, code, finalizeResponse{
		OrderID:          res.OrderID,
		AlreadyProcessed: res.AlreadyProcessed,
	})
}
