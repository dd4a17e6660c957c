package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "124000", r.PostForm.Get("amount"))
		assert.Equal(t, "inr", r.PostForm.Get("currency"))
		assert.Equal(t, "user-1", r.PostForm.Get("metadata[user_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pi_123",
			"object": "payment_intent",
			"client_secret": "pi_123_secret_xyz",
			"status": "requires_payment_method",
			"amount": 124000,
			"currency": "inr"
		}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test", srv.URL)
	intent, err := g.CreateIntent(context.Background(), 124000, "inr", map[string]string{"user_id": "user-1"})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_xyz", intent.ClientSecret)
	assert.Equal(t, StatusRequiresPaymentMethod, intent.Status)
	assert.Equal(t, int64(124000), intent.Amount)
}

func TestRetrieveIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)

		_, _ = w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":500,"currency":"inr","client_secret":null}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test", srv.URL)
	intent, err := g.RetrieveIntent(context.Background(), "pi_123")
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, intent.Status)
	assert.Empty(t, intent.ClientSecret)
}

func TestRetrieveIntent_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"No such payment_intent"}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test", srv.URL)
	_, err := g.RetrieveIntent(context.Background(), "pi_missing")
	require.ErrorIs(t, err, ErrIntentNotFound)
}

func TestCreateIntent_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Amount must be at least 50 cents"}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test", srv.URL)
	_, err := g.CreateIntent(context.Background(), 1, "inr", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Amount must be at least")
}
