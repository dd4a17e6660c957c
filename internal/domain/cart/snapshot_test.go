package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/product"
)

func newTestProduct(id, categoryID int64, price string) product.Product {
	return product.Product{
		ID:         id,
		Name:       "test product",
		CategoryID: categoryID,
		Price:      decimal.RequireFromString(price),
		Stock:      100,
	}
}

func TestBuildSnapshot_Empty(t *testing.T) {
	snap := BuildSnapshot(1, nil, nil, time.Now())

	assert.True(t, snap.Empty())
	assert.Empty(t, snap.Items)
	assert.Zero(t, snap.TotalItems)
	assert.True(t, decimal.Zero.Equal(snap.TotalPrice))
}

func TestBuildSnapshot_TotalsWithoutDiscounts(t *testing.T) {
	lines := []Line{
		{Product: newTestProduct(1, 10, "6.50"), Quantity: 2},
		{Product: newTestProduct(2, 10, "3.00"), Quantity: 3},
	}

	snap := BuildSnapshot(7, lines, nil, time.Now())

	require.Len(t, snap.Items, 2)
	assert.Equal(t, 5, snap.TotalItems)
	assert.True(t, decimal.RequireFromString("22.00").Equal(snap.TotalPrice), "got %s", snap.TotalPrice)
	assert.True(t, decimal.RequireFromString("13.00").Equal(snap.Items[0].Subtotal))
}

func TestBuildSnapshot_AppliesCategoryDiscount(t *testing.T) {
	// productA: qty 2 @ 500, no discount; productB: qty 1 @ 300 with 20% off.
	now := time.Now()
	lines := []Line{
		{Product: newTestProduct(1, 10, "500"), Quantity: 2},
		{Product: newTestProduct(2, 20, "300"), Quantity: 1},
	}
	discounts := []pricing.Discount{
		{ID: 1, CategoryID: 20, Percent: decimal.NewFromInt(20), Active: true},
	}

	snap := BuildSnapshot(7, lines, discounts, now)

	require.Len(t, snap.Items, 2)
	assert.True(t, decimal.NewFromInt(500).Equal(snap.Items[0].UnitFinalPrice))
	assert.True(t, decimal.NewFromInt(240).Equal(snap.Items[1].UnitFinalPrice))
	assert.Equal(t, 3, snap.TotalItems)
	assert.True(t, decimal.NewFromInt(1240).Equal(snap.TotalPrice), "got %s", snap.TotalPrice)
}

func TestBuildSnapshot_IgnoresDiscountOutsideWindow(t *testing.T) {
	now := time.Now()
	ended := now.Add(-time.Second)
	lines := []Line{{Product: newTestProduct(1, 10, "100"), Quantity: 1}}
	discounts := []pricing.Discount{
		{ID: 1, CategoryID: 10, Percent: decimal.NewFromInt(50), Active: true, EndsAt: &ended},
	}

	snap := BuildSnapshot(7, lines, discounts, now)

	require.Len(t, snap.Items, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(snap.Items[0].UnitFinalPrice))
}
