package pricing

import (
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pasar/internal/store"
)

var (
	// ErrProductNotFound is returned when a requested product id has no record.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable is returned for products outside the APPROVED state.
	ErrProductUnavailable = errors.New("product not available")
	// ErrOutOfStock is returned for products flagged sold out.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrInsufficientStock is returned when tracked stock cannot cover the quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPremiumOnly is returned when a premium-gated product is requested by a non-premium plan.
	ErrPremiumOnly = errors.New("product restricted to premium members")
	// ErrMixedCurrency is returned when cart lines span more than one currency.
	ErrMixedCurrency = errors.New("cart mixes currencies")
)

// Line is one aggregated cart line; duplicate product ids must already be
// merged by the caller.
type Line struct {
	ProductID uuid.UUID
	Qty       int32
}

// QuoteItem snapshots one priced line.
type QuoteItem struct {
	Product    store.Product
	Qty        int32
	UnitPrice  Money
	UnitPoints int64
}

// Quote is the outcome of evaluating a cart against the catalog.
type Quote struct {
	TotalCents Money
	PointsCap  int64
	Currency   string
	Items      []QuoteItem
}

// Evaluate prices each line against the resolved products, enforcing
// availability, stock, premium gating, and single-currency carts. The
// currency of the first resolved product is authoritative.
func Evaluate(lines []Line, products []store.Product, premium bool) (Quote, error) {
	byID := make(map[uuid.UUID]store.Product, len(products))
	for _, p := range products {
		byID[uuid.UUID(p.ID.Bytes)] = p
	}

	var q Quote
	q.Items = make([]QuoteItem, 0, len(lines))
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return Quote{}, ErrProductNotFound
		}
		if p.Status != store.ProductStatusApproved {
			return Quote{}, ErrProductUnavailable
		}
		if p.IsOutOfStock {
			return Quote{}, ErrOutOfStock
		}
		if p.TrackInventory && p.StockQty < line.Qty {
			return Quote{}, ErrInsufficientStock
		}
		if p.PremiumOnly && !premium {
			return Quote{}, ErrPremiumOnly
		}
		if q.Currency == "" {
			q.Currency = p.Currency
		} else if p.Currency != q.Currency {
			return Quote{}, ErrMixedCurrency
		}

		unitPoints := UnitPointsCap(p.PriceCents, pointsPrice(p), p.PointsEligible)
		q.TotalCents += p.PriceCents * Money(line.Qty)
		q.PointsCap += unitPoints * int64(line.Qty)
		q.Items = append(q.Items, QuoteItem{
			Product:    p,
			Qty:        line.Qty,
			UnitPrice:  p.PriceCents,
			UnitPoints: unitPoints,
		})
	}
	return q, nil
}

func pointsPrice(p store.Product) int64 {
	if !p.PointsPrice.Valid {
		return 0
	}
	return int64(p.PointsPrice.Int32)
}
