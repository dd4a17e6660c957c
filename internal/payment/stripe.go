package payment

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultStripeBaseURL = "https://api.stripe.com"

var _ Gateway = (*StripeGateway)(nil)

// StripeGateway implements Gateway against the Stripe payment-intents REST
// API (or any compatible endpoint).
type StripeGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewStripeGateway creates a StripeGateway. An empty baseURL targets the
// public Stripe API; tests and local stacks point it elsewhere.
func NewStripeGateway(apiKey, baseURL string) *StripeGateway {
	if baseURL == "" {
		baseURL = defaultStripeBaseURL
	}
	return &StripeGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateIntent registers a payment intent for the given minor-unit amount.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return g.do(req)
}

// RetrieveIntent fetches an intent by id.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	return g.do(req)
}

func (g *StripeGateway) do(req *http.Request) (*Intent, error) {
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read gateway response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrIntentNotFound
	case resp.StatusCode >= 400:
		return nil, errors.Errorf("gateway returned %d: %s", resp.StatusCode, gatewayErrorMessage(body))
	}

	intent, err := parseIntent(body)
	if err != nil {
		return nil, errors.Wrap(err, "parse gateway response")
	}
	return intent, nil
}

// parseIntent decodes the fields we care about from a payment-intent JSON
// object, skipping everything else Stripe sends.
func parseIntent(data []byte) (*Intent, error) {
	var intent Intent
	d := jx.DecodeBytes(data)

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			intent.ID = v
			return err
		case "client_secret":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			intent.ClientSecret = v
			return err
		case "status":
			v, err := d.Str()
			intent.Status = IntentStatus(v)
			return err
		case "amount":
			v, err := d.Int64()
			intent.Amount = v
			return err
		case "currency":
			v, err := d.Str()
			intent.Currency = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}

	if intent.ID == "" {
		return nil, errors.New("intent id missing in response")
	}
	return &intent, nil
}

// gatewayErrorMessage extracts error.message from a Stripe error payload,
// falling back to the raw body.
func gatewayErrorMessage(data []byte) string {
	var msg string
	d := jx.DecodeBytes(data)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "message" {
				return d.Skip()
			}
			v, err := d.Str()
			msg = v
			return err
		})
	})
	if msg == "" {
		return string(data)
	}
	return msg
}
