package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const sumPointsLedger = `
SELECT COALESCE(SUM(delta), 0) FROM points_ledger WHERE user_id = $1
`

// SumPointsLedger derives the raw balance from the append-only ledger.
func (q *Queries) SumPointsLedger(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, sumPointsLedger, userID).Scan(&sum)
	return sum, err
}

const sumReservedPoints = `
SELECT COALESCE(SUM(points_spent), 0)
FROM orders
WHERE user_id = $1
  AND status = 'CREATED'
  AND paid_with = 'MIXED'
  AND points_spent > 0
`

// SumReservedPoints totals points held by in-flight orders awaiting payment.
// Those points are not yet debited from the ledger but must not be spendable
// by a concurrent settlement.
func (q *Queries) SumReservedPoints(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, sumReservedPoints, userID).Scan(&sum)
	return sum, err
}

const insertPointsEntry = `
INSERT INTO points_ledger (id, user_id, delta, reason, ref_type, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
`

// InsertPointsEntryParams appends one ledger entry.
type InsertPointsEntryParams struct {
	UserID  pgtype.UUID
	Delta   int64
	Reason  string
	RefType pgtype.Text
	RefID   pgtype.UUID
}

// InsertPointsEntry appends to the ledger. Entries are never updated or
// deleted; corrections are new entries.
func (q *Queries) InsertPointsEntry(ctx context.Context, arg InsertPointsEntryParams) error {
	_, err := q.db.Exec(ctx, insertPointsEntry, NewUUID(), arg.UserID, arg.Delta, arg.Reason, arg.RefType, arg.RefID)
	return err
}
