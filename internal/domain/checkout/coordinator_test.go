package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/cart"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/order"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/product"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/payment"
)

// --- Mock implementations ---

type mockTx struct {
	cartID    int64
	lines     []cart.Line
	discounts []pricing.Discount

	insertOrderErr error
	decrementErrs  map[int64]error
	orderIDByRef   string

	insertedOrder *order.Order
	insertedItems []order.Item
	decremented   map[int64]int
	cleared       bool
	committed     bool
	rolledBack    bool
}

func (m *mockTx) CartLines(_ context.Context, _ string) (int64, []cart.Line, error) {
	return m.cartID, m.lines, nil
}

func (m *mockTx) DiscountsForCategories(_ context.Context, _ []int64) ([]pricing.Discount, error) {
	return m.discounts, nil
}

func (m *mockTx) InsertOrder(_ context.Context, o *order.Order) error {
	if m.insertOrderErr != nil {
		return m.insertOrderErr
	}
	m.insertedOrder = o
	return nil
}

func (m *mockTx) InsertOrderItem(_ context.Context, item *order.Item) error {
	m.insertedItems = append(m.insertedItems, *item)
	return nil
}

func (m *mockTx) DecrementStock(_ context.Context, productID int64, quantity int) error {
	if err, ok := m.decrementErrs[productID]; ok {
		return err
	}
	if m.decremented == nil {
		m.decremented = make(map[int64]int)
	}
	m.decremented[productID] += quantity
	return nil
}

func (m *mockTx) ClearCartItems(_ context.Context, _ int64) error {
	m.cleared = true
	return nil
}

func (m *mockTx) OrderIDByPaymentReference(_ context.Context, _ string) (string, error) {
	return m.orderIDByRef, nil
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.rolledBack {
		return errors.New("commit after rollback")
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

type mockStore struct {
	tx           *mockTx
	beginErr     error
	orderIDByRef string
}

func (m *mockStore) Begin(_ context.Context) (StoreTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

func (m *mockStore) OrderIDByPaymentReference(_ context.Context, _ string) (string, error) {
	return m.orderIDByRef, nil
}

type createCall struct {
	amount   int64
	currency string
	metadata map[string]string
}

type mockGateway struct {
	intent      *payment.Intent
	retrieveErr error
	createErr   error
	created     *createCall
}

func (m *mockGateway) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &createCall{amount: amount, currency: currency, metadata: metadata}
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: payment.StatusProcessing}, nil
}

func (m *mockGateway) RetrieveIntent(_ context.Context, _ string) (*payment.Intent, error) {
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	return m.intent, nil
}

type mockCartRepo struct {
	cartID    int64
	lines     []cart.Line
	discounts []pricing.Discount
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID string) (*cart.Cart, error) {
	return &cart.Cart{ID: m.cartID, UserID: userID}, nil
}

func (m *mockCartRepo) SnapshotData(_ context.Context, _ string) (int64, []cart.Line, []pricing.Discount, error) {
	return m.cartID, m.lines, m.discounts, nil
}

func (m *mockCartRepo) UpsertItem(_ context.Context, _, _ int64, _ int) error      { return nil }
func (m *mockCartRepo) SetItemQuantity(_ context.Context, _, _ int64, _ int) error { return nil }
func (m *mockCartRepo) RemoveItem(_ context.Context, _, _ int64) error             { return nil }
func (m *mockCartRepo) Clear(_ context.Context, _ int64) error                     { return nil }

type mockProductRepo struct{}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }
func (m *mockProductRepo) GetByID(_ context.Context, _ int64) (*product.Product, error) {
	return nil, product.ErrNotFound
}

// --- Helpers ---

func testProduct(id, categoryID int64, price string) product.Product {
	return product.Product{
		ID:         id,
		Name:       "test product",
		CategoryID: categoryID,
		Price:      decimal.RequireFromString(price),
		Stock:      100,
	}
}

// twoLineCart is the end-to-end scenario: productA qty 2 @ 500 undiscounted,
// productB qty 1 @ 300 with 20% off -> total 1240.
func twoLineCart() ([]cart.Line, []pricing.Discount) {
	lines := []cart.Line{
		{Product: testProduct(1, 10, "500"), Quantity: 2},
		{Product: testProduct(2, 20, "300"), Quantity: 1},
	}
	discounts := []pricing.Discount{
		{ID: 1, CategoryID: 20, Percent: decimal.NewFromInt(20), Active: true},
	}
	return lines, discounts
}

func succeededGateway() *mockGateway {
	return &mockGateway{intent: &payment.Intent{ID: "pi_1", Status: payment.StatusSucceeded}}
}

func newCoordinator(store Store, gw payment.Gateway, carts *cart.Service) *Coordinator {
	return NewCoordinator(store, gw, carts, Config{
		MinOrderValue: decimal.NewFromInt(50),
		Currency:      "inr",
	})
}

func cartService(repo cart.Repository) *cart.Service {
	return cart.NewService(repo, &mockProductRepo{})
}

// --- Finalize tests ---

func TestFinalize_Unauthorized(t *testing.T) {
	c := newCoordinator(&mockStore{}, succeededGateway(), nil)

	_, err := c.Finalize(context.Background(), "", "pi_1")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestFinalize_MissingReference(t *testing.T) {
	c := newCoordinator(&mockStore{}, succeededGateway(), nil)

	_, err := c.Finalize(context.Background(), "user-1", "")
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestFinalize_PaymentNotConfirmed(t *testing.T) {
	gw := &mockGateway{intent: &payment.Intent{ID: "pi_1", Status: payment.StatusProcessing}}
	c := newCoordinator(&mockStore{}, gw, nil)

	_, err := c.Finalize(context.Background(), "user-1", "pi_1")
	require.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestFinalize_UnknownIntentIsNotConfirmed(t *testing.T) {
	gw := &mockGateway{retrieveErr: payment.ErrIntentNotFound}
	c := newCoordinator(&mockStore{}, gw, nil)

	_, err := c.Finalize(context.Background(), "user-1", "pi_1")
	require.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestFinalize_GatewayUnavailable(t *testing.T) {
	gw := &mockGateway{retrieveErr: errors.New("connection refused")}
	c := newCoordinator(&mockStore{}, gw, nil)

	_, err := c.Finalize(context.Background(), "user-1", "pi_1")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestFinalize_HappyPath(t *testing.T) {
	lines, discounts := twoLineCart()
	tx := &mockTx{cartID: 7, lines: lines, discounts: discounts}
	store := &mockStore{tx: tx}
	c := newCoordinator(store, succeededGateway(), nil)

	res, err := c.Finalize(context.Background(), "user-1", "pi_1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.AlreadyProcessed)
	assert.NotEmpty(t, res.OrderID)

	require.NotNil(t, tx.insertedOrder)
	assert.Equal(t, order.StatusPaid, tx.insertedOrder.Status)
	assert.Equal(t, "pi_1", tx.insertedOrder.PaymentReference)
	assert.True(t, decimal.NewFromInt(1240).Equal(tx.insertedOrder.Total), "got %s", tx.insertedOrder.Total)

	// Locked prices: 500 undiscounted, 240 after the 20% discount.
	require.Len(t, tx.insertedItems, 2)
	assert.True(t, decimal.NewFromInt(500).Equal(tx.insertedItems[0].PriceAtPurchase))
	assert.True(t, decimal.NewFromInt(240).Equal(tx.insertedItems[1].PriceAtPurchase))

	assert.Equal(t, map[int64]int{1: 2, 2: 1}, tx.decremented)
	assert.True(t, tx.cleared)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestFinalize_PriceLockIgnoresLaterDiscountChange(t *testing.T) {
	// A 10% discount active at checkout time locks 900 into the order item
	// even though the coordinator's clock later moves past the window.
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ends := now.Add(time.Minute)
	lines := []cart.Line{{Product: testProduct(1, 10, "1000"), Quantity: 1}}
	discounts := []pricing.Discount{
		{ID: 1, CategoryID: 10, Percent: decimal.NewFromInt(10), Active: true, EndsAt: &ends},
	}
	tx := &mockTx{cartID: 7, lines: lines, discounts: discounts}
	c := NewCoordinator(&mockStore{tx: tx}, succeededGateway(), nil, Config{Currency: "inr"},
		WithClock(func() time.Time { return now }),
	)

	_, err := c.Finalize(context.Background(), "user-1", "pi_1")
	require.NoError(t, err)

	require.Len(t, tx.insertedItems, 1)
	assert.True(t, decimal.NewFromInt(900).Equal(tx.insertedItems[0].PriceAtPurchase))
	assert.True(t, decimal.NewFromInt(900).Equal(tx.insertedOrder.Total))
}

func TestFinalize_EmptyCartIsIdempotentSuccess(t *testing.T) {
	tx := &mockTx{cartID: 7, orderIDByRef: "order-123"}
	c := newCoordinator(&mockStore{tx: tx}, succeededGateway(), nil)

	res, err := c.Finalize(context.Background(), "user-1", "pi_1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, "order-123", res.OrderID)
	assert.True(t, tx.committed)
	assert.Nil(t, tx.insertedOrder)
	assert.Empty(t, tx.decremented)
}

func TestFinalize_DuplicateReferenceIsIdempotentSuccess(t *testing.T) {
	lines, discounts := twoLineCart()
	tx := &mockTx{
		cartID:         7,
		lines:          lines,
		discounts:      discounts,
		insertOrderErr: ErrDuplicatePaymentReference,
	}
	store := &mockStore{tx: tx, orderIDByRef: "order-456"}
	c := newCoordinator(store, succeededGateway(), nil)

	res, err := c.Finalize(context.Background(), "user-1", "pi_1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, "order-456", res.OrderID)

	// The losing transaction rolled back without mutating anything.
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, tx.insertedItems)
	assert.Empty(t, tx.decremented)
	assert.False(t, tx.cleared)
}

func TestFinalize_InsufficientStockAbortsEverything(t *testing.T) {
	lines, discounts := twoLineCart()
	tx := &mockTx{
		cartID:    7,
		lines:     lines,
		discounts: discounts,
		decrementErrs: map[int64]error{
			2: &InsufficientStockError{ProductID: 2, Requested: 1},
		},
	}
	c := newCoordinator(&mockStore{tx: tx}, succeededGateway(), nil)

	_, err := c.Finalize(context.Background(), "user-1", "pi_1")

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.False(t, tx.cleared)
}

func TestFinalize_BeginFailureIsPersistenceError(t *testing.T) {
	store := &mockStore{beginErr: errors.New("pool exhausted")}
	c := newCoordinator(store, succeededGateway(), nil)

	_, err := c.Finalize(context.Background(), "user-1", "pi_1")

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
}

// --- InitiatePayment tests ---

func TestInitiatePayment_Unauthorized(t *testing.T) {
	c := newCoordinator(&mockStore{}, &mockGateway{}, cartService(&mockCartRepo{}))

	_, err := c.InitiatePayment(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestInitiatePayment_EmptyCart(t *testing.T) {
	gw := &mockGateway{}
	c := newCoordinator(&mockStore{}, gw, cartService(&mockCartRepo{cartID: 7}))

	_, err := c.InitiatePayment(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, gw.created)
}

func TestInitiatePayment_OrderTooSmall(t *testing.T) {
	repo := &mockCartRepo{
		cartID: 7,
		lines:  []cart.Line{{Product: testProduct(1, 10, "40"), Quantity: 1}},
	}
	gw := &mockGateway{}
	c := newCoordinator(&mockStore{}, gw, cartService(repo))

	_, err := c.InitiatePayment(context.Background(), "user-1")

	var tooSmall *OrderTooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.True(t, decimal.NewFromInt(50).Equal(tooSmall.Minimum))
	assert.True(t, decimal.NewFromInt(40).Equal(tooSmall.Total))
	assert.Nil(t, gw.created, "no gateway intent may be created")
}

func TestInitiatePayment_CreatesIntentInMinorUnits(t *testing.T) {
	lines, discounts := twoLineCart()
	repo := &mockCartRepo{cartID: 7, lines: lines, discounts: discounts}
	gw := &mockGateway{}
	c := newCoordinator(&mockStore{}, gw, cartService(repo))

	res, err := c.InitiatePayment(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_test_secret", res.ClientSecret)
	assert.Equal(t, int64(124000), res.Amount)

	require.NotNil(t, gw.created)
	assert.Equal(t, int64(124000), gw.created.amount)
	assert.Equal(t, "inr", gw.created.currency)
	assert.Equal(t, "user-1", gw.created.metadata["user_id"])
}

func TestInitiatePayment_GatewayFailure(t *testing.T) {
	lines, discounts := twoLineCart()
	repo := &mockCartRepo{cartID: 7, lines: lines, discounts: discounts}
	gw := &mockGateway{createErr: errors.New("timeout")}
	c := newCoordinator(&mockStore{}, gw, cartService(repo))

	_, err := c.InitiatePayment(context.Background(), "user-1")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
}
