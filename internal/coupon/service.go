package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pasar/internal/store"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (store.Coupon, error)
	GetCouponUsageByOrder(ctx context.Context, arg store.GetCouponUsageByOrderParams) (store.CouponUsageRef, error)
	InsertCouponUsage(ctx context.Context, arg store.InsertCouponUsageParams) error
	IncrementCouponUsedCount(ctx context.Context, id pgtype.UUID) error
}

// Service resolves codes and records redemptions.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Resolution is the outcome of validating a coupon against a gross total.
type Resolution struct {
	Coupon        store.Coupon
	DiscountCents int64
}

// Resolve normalizes the code, validates the coupon, and computes its
// discount for the given gross total. Codes are case-insensitive.
func (s *Service) Resolve(ctx context.Context, code string, totalCents int64) (Resolution, error) {
	return s.resolve(ctx, s.Q, code, totalCents)
}

// ResolveWith behaves like Resolve against a transaction-bound querier.
func (s *Service) ResolveWith(ctx context.Context, q Querier, code string, totalCents int64) (Resolution, error) {
	return s.resolve(ctx, q, code, totalCents)
}

func (s *Service) resolve(ctx context.Context, q Querier, code string, totalCents int64) (Resolution, error) {
	if s == nil || q == nil {
		return Resolution{}, errors.New("coupon service not configured")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Resolution{}, ErrInvalid
	}
	record, err := q.GetCouponByCode(ctx, normalized)
	if err != nil {
		if store.IsNotFound(err) {
			return Resolution{}, ErrInvalid
		}
		return Resolution{}, err
	}
	rule := RuleFromModel(record)
	if err := rule.Validate(s.now(), totalCents); err != nil {
		return Resolution{}, err
	}
	return Resolution{Coupon: record, DiscountCents: rule.Discount(totalCents)}, nil
}

// Settle records the redemption and bumps the usage counter. One usage row is
// written per (coupon, order); replays are no-ops.
func (s *Service) Settle(ctx context.Context, q Querier, couponID, userID, orderID pgtype.UUID, amountCents int64) error {
	if s == nil || q == nil {
		return errors.New("coupon service not configured")
	}
	if !couponID.Valid || !orderID.Valid {
		return nil
	}
	_, err := q.GetCouponUsageByOrder(ctx, store.GetCouponUsageByOrderParams{CouponID: couponID, OrderID: orderID})
	if err == nil {
		return nil
	}
	if !store.IsNotFound(err) {
		return err
	}
	if amountCents < 0 {
		amountCents = 0
	}
	if err := q.InsertCouponUsage(ctx, store.InsertCouponUsageParams{
		CouponID:    couponID,
		UserID:      userID,
		OrderID:     orderID,
		AmountCents: amountCents,
	}); err != nil {
		return err
	}
	return q.IncrementCouponUsedCount(ctx, couponID)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
