package coupon

import (
	"errors"
	"time"

	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/store"
)

var (
	// ErrInvalid is returned when the coupon does not exist or is inactive.
	ErrInvalid = errors.New("coupon invalid")
	// ErrNotStarted is returned before the coupon's validity window opens.
	ErrNotStarted = errors.New("coupon not started")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrLimitReached indicates the coupon exhausted its global usage quota.
	ErrLimitReached = errors.New("coupon usage limit reached")
	// ErrMinOrder indicates the gross total did not meet the coupon requirement.
	ErrMinOrder = errors.New("coupon minimum order not met")
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	Code             string
	Active           bool
	Type             store.CouponType
	Value            int64
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	MaxUses          *int32
	UsedCount        int32
	MinOrderCents    *int64
	MaxDiscountCents *int64
}

// Validate ensures the rule can be applied at the provided instant and gross total.
func (r Rule) Validate(now time.Time, totalCents int64) error {
	if !r.Active {
		return ErrInvalid
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrNotStarted
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return ErrExpired
	}
	if r.MaxUses != nil && r.UsedCount >= *r.MaxUses {
		return ErrLimitReached
	}
	if r.MinOrderCents != nil && totalCents < *r.MinOrderCents {
		return ErrMinOrder
	}
	return nil
}

// Discount computes the discount for the given gross total. Percentage values
// are basis points (500 = 5%) with floor truncation; the result is clamped by
// the coupon's own cap and can never exceed the total.
func (r Rule) Discount(totalCents int64) int64 {
	var discount int64
	switch r.Type {
	case store.CouponTypePercentage:
		discount = pricing.ApplyBps(totalCents, r.Value)
	case store.CouponTypeFixed:
		discount = r.Value
	default:
		return 0
	}
	if r.MaxDiscountCents != nil && discount > *r.MaxDiscountCents {
		discount = *r.MaxDiscountCents
	}
	return pricing.ClampDiscount(discount, totalCents)
}

// RuleFromModel converts a stored coupon into an evaluable Rule.
func RuleFromModel(c store.Coupon) Rule {
	rule := Rule{
		Code:      c.Code,
		Active:    c.IsActive,
		Type:      c.Type,
		Value:     c.Value,
		UsedCount: c.UsedCount,
	}
	if c.ValidFrom.Valid {
		t := c.ValidFrom.Time
		rule.ValidFrom = &t
	}
	if c.ValidUntil.Valid {
		t := c.ValidUntil.Time
		rule.ValidUntil = &t
	}
	if c.MaxUses.Valid {
		v := c.MaxUses.Int32
		rule.MaxUses = &v
	}
	if c.MinOrderCents.Valid {
		v := c.MinOrderCents.Int64
		rule.MinOrderCents = &v
	}
	if c.MaxDiscountCents.Valid {
		v := c.MaxDiscountCents.Int64
		rule.MaxDiscountCents = &v
	}
	return rule
}
