package order

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pasar/internal/store"
)

// ReleaseQuerier is the transaction-bound query set a release needs.
type ReleaseQuerier interface {
	GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]store.Product, error)
	RestockProduct(ctx context.Context, arg store.RestockProductParams) error
	InsertInventoryMovement(ctx context.Context, arg store.InsertInventoryMovementParams) error
	InsertPointsEntry(ctx context.Context, arg store.InsertPointsEntryParams) error
	UpdateOrderStatus(ctx context.Context, arg store.UpdateOrderStatusParams) error
}

// Release cancels an order inside the caller's transaction: tracked stock is
// returned with CANCEL movement rows, and points already debited (orders
// settled purely with points) are refunded with a compensating ledger entry.
// Points merely reserved by a CREATED/MIXED order need no entry; the status
// change alone frees them because the balance is a derived read.
func Release(ctx context.Context, q ReleaseQuerier, o store.Order, items []store.OrderItem, next store.OrderStatus) error {
	if err := q.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: o.ID, Status: next}); err != nil {
		return err
	}

	ids := make([]pgtype.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := q.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	tracked := make(map[[16]byte]bool, len(products))
	for _, p := range products {
		tracked[p.ID.Bytes] = p.TrackInventory
	}
	for _, it := range items {
		if !tracked[it.ProductID.Bytes] {
			continue
		}
		if err := q.RestockProduct(ctx, store.RestockProductParams{ProductID: it.ProductID, Qty: it.Qty}); err != nil {
			return err
		}
		if err := q.InsertInventoryMovement(ctx, store.InsertInventoryMovementParams{
			ProductID: it.ProductID,
			Delta:     it.Qty,
			Type:      store.InventoryMovementCancel,
			RefID:     o.ID,
		}); err != nil {
			return err
		}
	}

	if o.Status == store.OrderStatusPaid && o.PointsSpent > 0 {
		if err := q.InsertPointsEntry(ctx, store.InsertPointsEntryParams{
			UserID:  o.UserID,
			Delta:   o.PointsSpent,
			Reason:  store.PointsReasonRefund,
			RefType: pgtype.Text{String: "ORDER", Valid: true},
			RefID:   o.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}
