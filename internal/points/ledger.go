package points

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
)

// Querier captures the reads the ledger accessor needs. Both sums must be
// executed on the same transaction as the order insert when called during
// settlement, otherwise two concurrent settlements can observe the same
// balance and jointly overspend it.
type Querier interface {
	SumPointsLedger(ctx context.Context, userID pgtype.UUID) (int64, error)
	SumReservedPoints(ctx context.Context, userID pgtype.UUID) (int64, error)
}

// Ledger derives spendable balances from the append-only points log.
type Ledger struct{}

// Available computes the user's spendable balance: the ledger sum minus
// points reserved by in-flight CREATED/MIXED orders that have not yet been
// debited or released.
func (Ledger) Available(ctx context.Context, q Querier, userID pgtype.UUID) (int64, error) {
	if q == nil {
		return 0, errors.New("points: querier not configured")
	}
	balance, err := q.SumPointsLedger(ctx, userID)
	if err != nil {
		return 0, err
	}
	reserved, err := q.SumReservedPoints(ctx, userID)
	if err != nil {
		return 0, err
	}
	available := balance - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

// Apply returns the points to redeem given the cart's cap and the balance.
func Apply(cap, available int64) int64 {
	if cap < 0 {
		cap = 0
	}
	if available < cap {
		return available
	}
	return cap
}
