package pricing

// Money represents a monetary value stored in minor units (cents).
type Money = int64

// CentsPerPoint fixes the redemption rate: one point offsets one whole
// currency unit.
const CentsPerPoint Money = 100

// ApplyBps computes amount*bps/10000 with floor truncation. Truncation is
// deliberate: rounding up would grant more discount than entitled.
func ApplyBps(amount Money, bps int64) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return amount * bps / 10000
}

// ClampDiscount bounds a discount so it never exceeds the payable base and
// never goes negative.
func ClampDiscount(discount, total Money) Money {
	if discount < 0 {
		return 0
	}
	if discount > total {
		return total
	}
	return discount
}

// UnitPointsCap returns the redeemable points for one unit of a product:
// the lesser of one point per whole currency unit of price and the
// product's own configured points price. Zero when the product is not
// points-eligible.
func UnitPointsCap(priceCents Money, pointsPrice int64, eligible bool) int64 {
	if !eligible || pointsPrice <= 0 {
		return 0
	}
	byPrice := priceCents / CentsPerPoint
	if pointsPrice < byPrice {
		return pointsPrice
	}
	return byPrice
}

// Remaining computes the cash still owed after discount and points offset,
// floored at zero.
func Remaining(total, discount Money, points int64) Money {
	remaining := total - discount - points*CentsPerPoint
	if remaining < 0 {
		return 0
	}
	return remaining
}
