// Package pricing computes the authoritative unit price of a product at a
// point in time. At most one category discount applies; selection and
// rounding are deterministic so every persisted price agrees with every
// computed total.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is a category-level percentage discount with an optional
// activity window. A nil boundary leaves that side of the window open.
type Discount struct {
	ID         int64
	CategoryID int64
	Percent    decimal.Decimal
	Active     bool
	StartsAt   *time.Time
	EndsAt     *time.Time
}

// InEffect reports whether the discount applies at the given instant.
// Both window boundaries are inclusive: a discount starting exactly now is
// already in effect, one ending exactly now still is.
func (d Discount) InEffect(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.StartsAt != nil && d.StartsAt.After(now) {
		return false
	}
	if d.EndsAt != nil && d.EndsAt.Before(now) {
		return false
	}
	return true
}

// Select picks the single discount in effect at now. When several qualify
// the highest percentage wins; among equals the most recently started
// (discounts without a start date sort last), and finally the lowest id.
// The second return value is false when no discount is in effect.
func Select(discounts []Discount, now time.Time) (Discount, bool) {
	var (
		best  Discount
		found bool
	)
	for _, d := range discounts {
		if !d.InEffect(now) {
			continue
		}
		if !found || better(d, best) {
			best = d
			found = true
		}
	}
	return best, found
}

// better reports whether a should be selected over b.
func better(a, b Discount) bool {
	if !a.Percent.Equal(b.Percent) {
		return a.Percent.GreaterThan(b.Percent)
	}
	switch {
	case a.StartsAt == nil && b.StartsAt == nil:
		return a.ID < b.ID
	case a.StartsAt == nil:
		return false
	case b.StartsAt == nil:
		return true
	case !a.StartsAt.Equal(*b.StartsAt):
		return a.StartsAt.After(*b.StartsAt)
	default:
		return a.ID < b.ID
	}
}

// FinalPrice returns the unit price of a product with the given base price
// after applying at most one discount in effect at now:
//
//	final = base * (100 - percent) / 100
//
// rounded with RoundMinor. Pure function; callers must re-evaluate per
// request because discount windows are time-dependent.
func FinalPrice(base decimal.Decimal, discounts []Discount, now time.Time) decimal.Decimal {
	d, ok := Select(discounts, now)
	if !ok {
		return RoundMinor(base)
	}
	return RoundMinor(base.Mul(hundred.Sub(d.Percent)).Div(hundred))
}

// RoundMinor rounds a price to the smallest currency unit (two decimal
// places) using round-half-up. Every persisted price and total goes through
// this one rule so sums of lines never drift from stored totals.
func RoundMinor(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MinorUnits converts a rounded decimal amount into the gateway's integer
// minor currency unit (e.g. rupees to paise), using the same half-up rule.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}
