package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AmanKashyapp07/E-Commerce-Backend/internal/domain/pricing"
)

// BuildSnapshot prices the given lines at now and sums the totals. It is a
// pure function of its inputs: the checkout coordinator reuses it on lines
// read inside its own transaction, the read path on a repeatable-read
// snapshot. An empty line set yields an empty item list and zero totals.
func BuildSnapshot(cartID int64, lines []Line, discounts []pricing.Discount, now time.Time) Snapshot {
	byCategory := make(map[int64][]pricing.Discount, len(discounts))
	for _, d := range discounts {
		byCategory[d.CategoryID] = append(byCategory[d.CategoryID], d)
	}

	snap := Snapshot{
		CartID:     cartID,
		Items:      make([]Item, 0, len(lines)),
		TotalPrice: decimal.Zero,
		TakenAt:    now,
	}

	for _, line := range lines {
		unit := pricing.FinalPrice(line.Product.Price, byCategory[line.Product.CategoryID], now)
		subtotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))

		snap.Items = append(snap.Items, Item{
			Product:        line.Product,
			Quantity:       line.Quantity,
			UnitFinalPrice: unit,
			Subtotal:       subtotal,
		})
		snap.TotalItems += line.Quantity
		snap.TotalPrice = snap.TotalPrice.Add(subtotal)
	}

	return snap
}
