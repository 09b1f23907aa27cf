package store

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// ProductStatus mirrors the moderation lifecycle of catalog products.
type ProductStatus string

const (
	ProductStatusPending  ProductStatus = "PENDING"
	ProductStatusApproved ProductStatus = "APPROVED"
	ProductStatusRejected ProductStatus = "REJECTED"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Product is the settlement engine's read view of a catalog product. Only
// stock fields are ever written back, and only inside a settlement transaction.
type Product struct {
	ID             pgtype.UUID
	Title          string
	PriceCents     int64
	Currency       string
	Status         ProductStatus
	TrackInventory bool
	StockQty       int32
	IsOutOfStock   bool
	PremiumOnly    bool
	PointsEligible bool
	PointsPrice    pgtype.Int4
}

// CouponType discriminates discount computation.
type CouponType string

const (
	CouponTypePercentage CouponType = "PERCENTAGE"
	CouponTypeFixed      CouponType = "FIXED"
)

// Coupon is mutated (used_count) only as part of a successful settlement.
type Coupon struct {
	ID               pgtype.UUID
	Code             string
	IsActive         bool
	Type             CouponType
	Value            int64
	ValidFrom        pgtype.Timestamptz
	ValidUntil       pgtype.Timestamptz
	MaxUses          pgtype.Int4
	UsedCount        int32
	MinOrderCents    pgtype.Int8
	MaxDiscountCents pgtype.Int8
}

// OrderStatus follows CREATED -> PAID / CANCELED / REFUNDED.
type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "CREATED"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// PaidWith records how an order was (or will be) settled.
type PaidWith string

const (
	PaidWithMoney  PaidWith = "MONEY"
	PaidWithPoints PaidWith = "POINTS"
	PaidWithMixed  PaidWith = "MIXED"
)

// Order stores the gross total; the discount is tracked separately and never
// folded into total_cents.
type Order struct {
	ID                pgtype.UUID
	UserID            pgtype.UUID
	Status            OrderStatus
	TotalCents        int64
	DiscountCents     int64
	CouponID          pgtype.UUID
	Currency          string
	PaidWith          PaidWith
	PointsSpent       int64
	ShippingAddressID pgtype.UUID
	ProviderPaymentID pgtype.Text
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

// OrderItem snapshots unit price and points at settlement time.
type OrderItem struct {
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Qty            int32
	UnitPriceCents int64
	UnitPoints     pgtype.Int4
}

// Points ledger entry reasons.
const (
	PointsReasonEarn   = "EARN"
	PointsReasonSpend  = "SPEND"
	PointsReasonRefund = "REFUND"
	PointsReasonAdjust = "ADJUST"
)

// PointsEntry is append-only; corrections are new entries with opposite delta.
type PointsEntry struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	Delta     int64
	Reason    string
	RefType   pgtype.Text
	RefID     pgtype.UUID
	CreatedAt pgtype.Timestamptz
}

// Inventory movement types.
const (
	InventoryMovementOrder  = "ORDER"
	InventoryMovementCancel = "CANCEL"
	InventoryMovementAdjust = "ADJUST"
)

// InventoryMovement is the audit trail for every stock_qty change.
type InventoryMovement struct {
	ID        pgtype.UUID
	ProductID pgtype.UUID
	Delta     int32
	Type      string
	RefID     pgtype.UUID
	CreatedAt pgtype.Timestamptz
}

// Address is owned by the user subsystem; settlement only verifies ownership.
type Address struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
	Label  pgtype.Text
}

// PointsPolicy gates whether a plan may redeem points.
type PointsPolicy string

const (
	PointsPolicyNone   PointsPolicy = "NONE"
	PointsPolicyEarn   PointsPolicy = "EARN"
	PointsPolicyRedeem PointsPolicy = "REDEEM"
)

// Plan is the membership tier resolved for the caller.
type Plan struct {
	Code         string
	Premium      bool
	PointsPolicy PointsPolicy
}

// DomainEvent is a persisted fact consumed by downstream notifiers.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
