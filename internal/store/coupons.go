package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getCouponByCode = `
SELECT id, code, is_active, coupon_type, value, valid_from, valid_until, max_uses, used_count, min_order_cents, max_discount_cents
FROM coupons
WHERE code = $1
`

// GetCouponByCode fetches a coupon by its normalized (uppercase) code.
func (q *Queries) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	row := q.db.QueryRow(ctx, getCouponByCode, code)
	var c Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.IsActive,
		&c.Type,
		&c.Value,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.MaxUses,
		&c.UsedCount,
		&c.MinOrderCents,
		&c.MaxDiscountCents,
	)
	return c, err
}

const incrementCouponUsedCount = `
UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE id = $1
`

// IncrementCouponUsedCount bumps the global usage counter.
func (q *Queries) IncrementCouponUsedCount(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, incrementCouponUsedCount, id)
	return err
}

const getCouponUsageByOrder = `
SELECT coupon_id, order_id FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2
`

// CouponUsageRef identifies a recorded redemption.
type CouponUsageRef struct {
	CouponID pgtype.UUID
	OrderID  pgtype.UUID
}

// GetCouponUsageByOrderParams keys the idempotency lookup.
type GetCouponUsageByOrderParams struct {
	CouponID pgtype.UUID
	OrderID  pgtype.UUID
}

// GetCouponUsageByOrder checks whether this order already redeemed the coupon.
func (q *Queries) GetCouponUsageByOrder(ctx context.Context, arg GetCouponUsageByOrderParams) (CouponUsageRef, error) {
	row := q.db.QueryRow(ctx, getCouponUsageByOrder, arg.CouponID, arg.OrderID)
	var u CouponUsageRef
	err := row.Scan(&u.CouponID, &u.OrderID)
	return u, err
}

const insertCouponUsage = `
INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, amount_cents, created_at)
VALUES ($1, $2, $3, $4, $5, now())
`

// InsertCouponUsageParams links one redemption to coupon, user, and order.
type InsertCouponUsageParams struct {
	CouponID    pgtype.UUID
	UserID      pgtype.UUID
	OrderID     pgtype.UUID
	AmountCents int64
}

// InsertCouponUsage records a redemption; one row per (coupon, order).
func (q *Queries) InsertCouponUsage(ctx context.Context, arg InsertCouponUsageParams) error {
	_, err := q.db.Exec(ctx, insertCouponUsage, NewUUID(), arg.CouponID, arg.UserID, arg.OrderID, arg.AmountCents)
	return err
}
