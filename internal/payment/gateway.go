// Package payment defines the payment gateway collaborator and its
// Stripe-compatible HTTP implementation. The checkout coordinator only ever
// consumes the gateway's view of an intent; the gateway's ledger is not ours.
package payment

import (
	"context"

	"github.com/go-faster/errors"
)

// IntentStatus is the gateway's reported state of a payment intent. Only
// StatusSucceeded lets a checkout proceed.
type IntentStatus string

const (
	StatusSucceeded             IntentStatus = "succeeded"
	StatusProcessing            IntentStatus = "processing"
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusCanceled              IntentStatus = "canceled"
)

// ErrIntentNotFound is returned when the gateway has no intent for the
// given identifier.
var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is the gateway's record of a payment. Amount is expressed in the
// gateway's minor currency unit.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
	Currency     string
}

// Gateway is the payment gateway collaborator.
type Gateway interface {
	// CreateIntent registers a payment of amount minor units and returns
	// the client secret the frontend completes the payment with.
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	// RetrieveIntent fetches the current status of an intent by id.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}
