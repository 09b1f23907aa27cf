package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Querier enumerates every query the application runs. Services depend on
// this interface (or a subset) so tests can substitute in-memory stubs.
type Querier interface {
	GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error)
	DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) error
	RestockProduct(ctx context.Context, arg RestockProductParams) error
	InsertInventoryMovement(ctx context.Context, arg InsertInventoryMovementParams) error

	GetCouponByCode(ctx context.Context, code string) (Coupon, error)
	IncrementCouponUsedCount(ctx context.Context, id pgtype.UUID) error
	GetCouponUsageByOrder(ctx context.Context, arg GetCouponUsageByOrderParams) (CouponUsageRef, error)
	InsertCouponUsage(ctx context.Context, arg InsertCouponUsageParams) error

	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error
	GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error)
	ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) error
	SetOrderProviderPaymentID(ctx context.Context, arg SetOrderProviderPaymentIDParams) error

	SumPointsLedger(ctx context.Context, userID pgtype.UUID) (int64, error)
	SumReservedPoints(ctx context.Context, userID pgtype.UUID) (int64, error)
	InsertPointsEntry(ctx context.Context, arg InsertPointsEntryParams) error

	GetAddressByID(ctx context.Context, id pgtype.UUID) (Address, error)
	GetPlanByUser(ctx context.Context, userID pgtype.UUID) (Plan, error)
	GetUserEmail(ctx context.Context, userID pgtype.UUID) (string, error)
	InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error)
}

var _ Querier = (*Queries)(nil)
