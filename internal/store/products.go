package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getProductsByIDs = `
SELECT id, title, price_cents, currency, status, track_inventory, stock_qty, is_out_of_stock, premium_only, points_eligible, points_price
FROM products
WHERE id = ANY($1)
`

// GetProductsByIDs resolves the requested products; missing ids are simply
// absent from the result, callers detect them by count.
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.PriceCents,
			&p.Currency,
			&p.Status,
			&p.TrackInventory,
			&p.StockQty,
			&p.IsOutOfStock,
			&p.PremiumOnly,
			&p.PointsEligible,
			&p.PointsPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const decrementProductStock = `
UPDATE products
SET stock_qty = stock_qty - $2,
    is_out_of_stock = track_inventory AND stock_qty - $2 <= 0,
    updated_at = now()
WHERE id = $1
`

// DecrementProductStockParams carries inventory decrement inputs.
type DecrementProductStockParams struct {
	ProductID pgtype.UUID
	Qty       int32
}

// DecrementProductStock reduces tracked stock and recomputes the sold-out flag.
func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) error {
	_, err := q.db.Exec(ctx, decrementProductStock, arg.ProductID, arg.Qty)
	return err
}

const restockProduct = `
UPDATE products
SET stock_qty = stock_qty + $2,
    is_out_of_stock = track_inventory AND stock_qty + $2 <= 0,
    updated_at = now()
WHERE id = $1
`

// RestockProductParams carries inventory restore inputs.
type RestockProductParams struct {
	ProductID pgtype.UUID
	Qty       int32
}

// RestockProduct returns stock released by a cancellation.
func (q *Queries) RestockProduct(ctx context.Context, arg RestockProductParams) error {
	_, err := q.db.Exec(ctx, restockProduct, arg.ProductID, arg.Qty)
	return err
}

const insertInventoryMovement = `
INSERT INTO inventory_movements (id, product_id, delta, movement_type, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, now())
`

// InsertInventoryMovementParams records one audited stock change.
type InsertInventoryMovementParams struct {
	ProductID pgtype.UUID
	Delta     int32
	Type      string
	RefID     pgtype.UUID
}

// InsertInventoryMovement appends to the stock audit trail. Every change to
// stock_qty must be paired with a movement row so discrepancies can be
// reconciled later.
func (q *Queries) InsertInventoryMovement(ctx context.Context, arg InsertInventoryMovementParams) error {
	_, err := q.db.Exec(ctx, insertInventoryMovement, NewUUID(), arg.ProductID, arg.Delta, arg.Type, arg.RefID)
	return err
}
