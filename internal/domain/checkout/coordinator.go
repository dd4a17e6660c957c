package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/order"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/payment"
)

// Config holds coordinator settings.
type Config struct {
	// MinOrderValue is the threshold below which InitiatePayment refuses to
	// create a gateway intent.
	MinOrderValue decimal.Decimal
	// Currency is the gateway currency code for created intents.
	Currency string
}

// Coordinator is the checkout state machine. It owns the store transaction
// for the whole finalize operation: side effects become visible to the rest
// of the system only after commit.
type Coordinator struct {
	store   Store
	gateway payment.Gateway
	carts   *cart.Service
	cfg     Config
	now     func() time.Time

	tracer    trace.Tracer
	finalized metric.Int64Counter
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the evaluation clock, used by tests to pin discount
// windows.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator wires the checkout coordinator. Telemetry instruments come
// from the global OpenTelemetry providers, which are no-ops until the app
// entrypoint installs real ones.
func NewCoordinator(store Store, gateway payment.Gateway, carts *cart.Service, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		gateway: gateway,
		carts:   carts,
		cfg:     cfg,
		now:     time.Now,
		tracer:  otel.Tracer("checkout"),
	}
	c.finalized, _ = otel.Meter("checkout").Int64Counter("checkout.finalized",
		metric.WithDescription("Finalize outcomes by result"),
	)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitiatePayment computes the authoritative cart total, enforces the
// minimum order value, and creates a gateway intent for it. It creates no
// order row and touches no stock; the committed order appears only when the
// confirmed payment is finalized.
func (c *Coordinator) InitiatePayment(ctx context.Context, userID string) (*IntentResult, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	snap, err := c.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if snap.Empty() {
		return nil, ErrEmptyCart
	}
	if snap.TotalPrice.LessThan(c.cfg.MinOrderValue) {
		return nil, &OrderTooSmallError{Total: snap.TotalPrice, Minimum: c.cfg.MinOrderValue}
	}

	amount := pricing.MinorUnits(snap.TotalPrice)
	intent, err := c.gateway.CreateIntent(ctx, amount, c.cfg.Currency, map[string]string{
		"user_id": userID,
		"total":   snap.TotalPrice.String(),
	})
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	zctx.From(ctx).Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", amount),
		zap.String("currency", c.cfg.Currency),
	)

	return &IntentResult{
		ClientSecret: intent.ClientSecret,
		Amount:       amount,
		Currency:     c.cfg.Currency,
	}, nil
}

// Finalize converts a confirmed payment reference into a committed order:
// verify the payment, reprice the cart inside the transaction, insert order
// and items with locked prices, decrement stock, clear the cart, commit.
// Calling it again with the same reference is safe: the unique payment
// reference forces every duplicate into a clean rollback that reports the
// original success.
func (c *Coordinator) Finalize(ctx context.Context, userID, reference string) (res *Result, err error) {
	ctx, span := c.tracer.Start(ctx, "checkout.Finalize")
	defer func() {
		c.recordOutcome(ctx, res, err)
		span.End()
	}()

	if userID == "" {
		return nil, ErrUnauthorized
	}
	if reference == "" {
		return nil, ErrMissingReference
	}
	span.SetAttributes(attribute.String("payment.reference", reference))

	intent, err := c.gateway.RetrieveIntent(ctx, reference)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotConfirmed
		}
		return nil, &GatewayError{Err: err}
	}
	if intent.Status != payment.StatusSucceeded {
		return nil, ErrPaymentNotConfirmed
	}

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	// Rollback is a no-op once the transaction committed.
	defer func() { _ = tx.Rollback(ctx) }()

	cartID, lines, err := tx.CartLines(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	// An empty cart means a previous invocation already completed this
	// checkout (or nothing was ever added): commit the no-op and report
	// success so the operation is safe to call twice.
	if len(lines) == 0 {
		orderID, lookupErr := tx.OrderIDByPaymentReference(ctx, reference)
		if lookupErr != nil {
			return nil, &PersistenceError{Err: lookupErr}
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, &PersistenceError{Err: err}
		}
		return &Result{OrderID: orderID, AlreadyProcessed: true}, nil
	}

	discounts, err := tx.DiscountsForCategories(ctx, categoryIDs(lines))
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	snap := cart.BuildSnapshot(cartID, lines, discounts, c.now())

	o := &order.Order{
		ID:               uuid.New().String(),
		UserID:           userID,
		Total:            snap.TotalPrice,
		Status:           order.StatusPaid,
		PaymentReference: reference,
	}
	if err := tx.InsertOrder(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicatePaymentReference) {
			return c.alreadyProcessed(ctx, tx, reference)
		}
		return nil, &PersistenceError{Err: err}
	}

	for i := range snap.Items {
		item := &snap.Items[i]
		if err := tx.InsertOrderItem(ctx, &order.Item{
			OrderID:         o.ID,
			ProductID:       item.Product.ID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.UnitFinalPrice,
		}); err != nil {
			return nil, &PersistenceError{Err: err}
		}
		if err := tx.DecrementStock(ctx, item.Product.ID, item.Quantity); err != nil {
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) {
				return nil, stockErr
			}
			return nil, &PersistenceError{Err: err}
		}
	}

	if err := tx.ClearCartItems(ctx, cartID); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	zctx.From(ctx).Info("Checkout finalized",
		zap.String("order_id", o.ID),
		zap.String("payment_reference", reference),
		zap.String("total", o.Total.String()),
		zap.Int("items", len(snap.Items)),
	)

	return &Result{OrderID: o.ID}, nil
}

// alreadyProcessed handles the idempotent retry: a concurrent or earlier
// invocation committed this reference first. The current transaction rolls
// back and the committed order id is read back outside it.
func (c *Coordinator) alreadyProcessed(ctx context.Context, tx StoreTx, reference string) (*Result, error) {
	_ = tx.Rollback(ctx)

	orderID, err := c.store.OrderIDByPaymentReference(ctx, reference)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	zctx.From(ctx).Info("Duplicate finalize for committed payment reference",
		zap.String("order_id", orderID),
		zap.String("payment_reference", reference),
	)

	return &Result{OrderID: orderID, AlreadyProcessed: true}, nil
}

func (c *Coordinator) recordOutcome(ctx context.Context, res *Result, err error) {
	if c.finalized == nil {
		return
	}
	outcome := "committed"
	switch {
	case err != nil:
		outcome = "failed"
	case res != nil && res.AlreadyProcessed:
		outcome = "already_processed"
	}
	c.finalized.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func categoryIDs(lines []cart.Line) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.Product.CategoryID]; ok {
			continue
		}
		seen[l.Product.CategoryID] = struct{}{}
		ids = append(ids, l.Product.CategoryID)
	}
	return ids
}
