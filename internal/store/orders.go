package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (id, user_id, status, total_cents, discount_cents, coupon_id, currency, paid_with, points_spent, shipping_address_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
RETURNING id, user_id, status, total_cents, discount_cents, coupon_id, currency, paid_with, points_spent, shipping_address_id, provider_payment_id, created_at, updated_at
`

// CreateOrderParams captures one settlement outcome.
type CreateOrderParams struct {
	UserID            pgtype.UUID
	Status            OrderStatus
	TotalCents        int64
	DiscountCents     int64
	CouponID          pgtype.UUID
	Currency          string
	PaidWith          PaidWith
	PointsSpent       int64
	ShippingAddressID pgtype.UUID
}

// CreateOrder inserts the order row and returns it.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		NewUUID(),
		arg.UserID,
		arg.Status,
		arg.TotalCents,
		arg.DiscountCents,
		arg.CouponID,
		arg.Currency,
		arg.PaidWith,
		arg.PointsSpent,
		arg.ShippingAddressID,
	)
	return scanOrder(row)
}

const insertOrderItem = `
INSERT INTO order_items (order_id, product_id, qty, unit_price_cents, unit_points)
VALUES ($1, $2, $3, $4, $5)
`

// InsertOrderItemParams snapshots one cart line.
type InsertOrderItemParams struct {
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Qty            int32
	UnitPriceCents int64
	UnitPoints     pgtype.Int4
}

// InsertOrderItem persists a price snapshot; it is never recomputed later.
func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	_, err := q.db.Exec(ctx, insertOrderItem, arg.OrderID, arg.ProductID, arg.Qty, arg.UnitPriceCents, arg.UnitPoints)
	return err
}

const getOrderByID = `
SELECT id, user_id, status, total_cents, discount_cents, coupon_id, currency, paid_with, points_spent, shipping_address_id, provider_payment_id, created_at, updated_at
FROM orders
WHERE id = $1
`

// GetOrderByID fetches a single order.
func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const listOrdersByUser = `
SELECT id, user_id, status, total_cents, discount_cents, coupon_id, currency, paid_with, points_spent, shipping_address_id, provider_payment_id, created_at, updated_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListOrdersByUserParams pages a user's order history.
type ListOrdersByUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

// ListOrdersByUser returns the user's orders, newest first.
func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listOrderItems = `
SELECT order_id, product_id, qty, unit_price_cents, unit_points
FROM order_items
WHERE order_id = $1
`

// ListOrderItems returns the snapshot lines of an order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Qty, &it.UnitPriceCents, &it.UnitPoints); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
`

// UpdateOrderStatusParams transitions an order.
type UpdateOrderStatusParams struct {
	ID     pgtype.UUID
	Status OrderStatus
}

// UpdateOrderStatus mutates status only; every other column is immutable
// after creation except provider_payment_id.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) error {
	_, err := q.db.Exec(ctx, updateOrderStatus, arg.ID, arg.Status)
	return err
}

const setOrderProviderPaymentID = `
UPDATE orders SET provider_payment_id = $2, updated_at = now() WHERE id = $1
`

// SetOrderProviderPaymentIDParams attaches the external payment session id.
type SetOrderProviderPaymentIDParams struct {
	ID                pgtype.UUID
	ProviderPaymentID pgtype.Text
}

// SetOrderProviderPaymentID records the external session for reconciliation.
func (q *Queries) SetOrderProviderPaymentID(ctx context.Context, arg SetOrderProviderPaymentIDParams) error {
	_, err := q.db.Exec(ctx, setOrderProviderPaymentID, arg.ID, arg.ProviderPaymentID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalCents,
		&o.DiscountCents,
		&o.CouponID,
		&o.Currency,
		&o.PaidWith,
		&o.PointsSpent,
		&o.ShippingAddressID,
		&o.ProviderPaymentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}
