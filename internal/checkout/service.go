package checkout

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/coupon"
	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/member"
	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/payment"
	"github.com/noah-isme/backend-pasar/internal/points"
	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// Store is the persistence seam the settlement service runs on. The
// serializable runner hands the closure a transaction-bound querier so every
// read and write between the balance check and the order insert shares one
// transaction.
type Store interface {
	store.Querier
	RunSerializable(ctx context.Context, fn func(q store.Querier) error) error
}

// SessionCreator opens an external payment session for the remainder owed.
type SessionCreator interface {
	CreateSession(ctx context.Context, order store.Order, items []store.OrderItem) (payment.SessionResponse, error)
}

// Service orchestrates checkout settlement: eligibility, coupon, points,
// the atomic order write, and post-commit side effects.
type Service struct {
	Store           Store
	Coupons         *coupon.Service
	Ledger          points.Ledger
	Payments        SessionCreator
	Events          *events.Bus
	Log             zerolog.Logger
	PremiumPlanCode string
	MaxLineQty      int
}

// Output is the settlement response. URL is set only when an external
// payment session was opened for a cash remainder.
type Output struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	PointsSpent int64  `json:"pointsSpent"`
	URL         string `json:"url,omitempty"`
}

// Settle runs the full settlement flow for one request. All business
// validation happens before the serializable transaction; the transaction
// itself only re-reads the points balance and writes the order, items,
// inventory, coupon usage, and ledger rows. A serialization failure surfaces
// as CONFLICT and is never retried here, the client owns the retry.
func (s *Service) Settle(ctx context.Context, userID string, in Input) (Output, error) {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Settle")
	defer span.End()

	start := time.Now()
	out, err := s.settle(ctx, userID, in)
	result := "ok"
	if err != nil {
		err = mapError(err)
		if code, ok := common.CodeOf(err); ok {
			result = code
		} else {
			result = "error"
		}
	}
	span.SetAttributes(attribute.String("checkout.result", result))
	if obs.SettlementTotal != nil {
		obs.SettlementTotal.WithLabelValues(result).Inc()
	}
	if obs.SettlementDuration != nil {
		obs.SettlementDuration.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return out, err
}

func (s *Service) settle(ctx context.Context, userID string, in Input) (Output, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return Output{}, common.NewAppError("INVALID_INPUT", "invalid user id", http.StatusBadRequest, err)
	}
	lines, err := NormalizeLines(in.Items)
	if err != nil {
		return Output{}, common.NewAppError("INVALID_INPUT", "invalid product id", http.StatusBadRequest, err)
	}
	if len(lines) == 0 {
		return Output{}, common.NewAppError("INVALID_INPUT", "no purchasable items", http.StatusBadRequest, nil)
	}
	maxQty := s.MaxLineQty
	if maxQty <= 0 {
		maxQty = 10
	}
	for _, l := range lines {
		if l.Qty > int32(maxQty) {
			return Output{}, common.NewAppError("INVALID_INPUT", "line quantity exceeds limit", http.StatusBadRequest, nil)
		}
	}

	plan, err := s.Store.GetPlanByUser(ctx, uid)
	if err != nil && !store.IsNotFound(err) {
		return Output{}, err
	}

	ids := make([]pgtype.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, pgtype.UUID{Bytes: l.ProductID, Valid: true})
	}
	products, err := s.Store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return Output{}, err
	}
	quote, err := pricing.Evaluate(lines, products, member.IsPremium(plan, s.PremiumPlanCode))
	if err != nil {
		return Output{}, err
	}

	shippingAddressID := pgtype.UUID{}
	if in.ShippingAddressID != nil {
		shippingAddressID, err = store.ToUUID(*in.ShippingAddressID)
		if err != nil {
			return Output{}, ErrInvalidAddress
		}
		addr, err := s.Store.GetAddressByID(ctx, shippingAddressID)
		if err != nil {
			if store.IsNotFound(err) {
				return Output{}, ErrInvalidAddress
			}
			return Output{}, err
		}
		if !store.UUIDEqual(addr.UserID, uid) {
			return Output{}, ErrInvalidAddress
		}
	}

	var resolution coupon.Resolution
	if in.CouponCode != nil && *in.CouponCode != "" {
		resolution, err = s.Coupons.Resolve(ctx, *in.CouponCode, quote.TotalCents)
		if err != nil {
			return Output{}, err
		}
	}
	discount := pricing.ClampDiscount(resolution.DiscountCents, quote.TotalCents)

	if in.UsePoints && !member.CanRedeemPoints(plan) {
		return Output{}, ErrPointsNotAllowed
	}

	var order store.Order
	var appliedPoints int64
	err = s.Store.RunSerializable(ctx, func(q store.Querier) error {
		appliedPoints = 0
		if in.UsePoints && quote.PointsCap > 0 {
			available, err := s.Ledger.Available(ctx, q, uid)
			if err != nil {
				return err
			}
			appliedPoints = points.Apply(quote.PointsCap, available)
		}
		remaining := pricing.Remaining(quote.TotalCents, discount, appliedPoints)

		status := store.OrderStatusCreated
		if remaining <= 0 {
			status = store.OrderStatusPaid
		}
		paidWith := store.PaidWithMoney
		switch {
		case appliedPoints > 0 && remaining > 0:
			paidWith = store.PaidWithMixed
		case appliedPoints > 0:
			paidWith = store.PaidWithPoints
		}

		order, err = q.CreateOrder(ctx, store.CreateOrderParams{
			UserID:            uid,
			Status:            status,
			TotalCents:        quote.TotalCents,
			DiscountCents:     discount,
			CouponID:          resolution.Coupon.ID,
			Currency:          quote.Currency,
			PaidWith:          paidWith,
			PointsSpent:       appliedPoints,
			ShippingAddressID: shippingAddressID,
		})
		if err != nil {
			return err
		}

		for _, it := range quote.Items {
			unitPoints := pgtype.Int4{}
			if it.UnitPoints > 0 {
				unitPoints = pgtype.Int4{Int32: int32(it.UnitPoints), Valid: true}
			}
			if err := q.InsertOrderItem(ctx, store.InsertOrderItemParams{
				OrderID:        order.ID,
				ProductID:      it.Product.ID,
				Qty:            it.Qty,
				UnitPriceCents: it.UnitPrice,
				UnitPoints:     unitPoints,
			}); err != nil {
				return err
			}
			if it.Product.TrackInventory {
				if err := q.DecrementProductStock(ctx, store.DecrementProductStockParams{
					ProductID: it.Product.ID,
					Qty:       it.Qty,
				}); err != nil {
					return err
				}
				if err := q.InsertInventoryMovement(ctx, store.InsertInventoryMovementParams{
					ProductID: it.Product.ID,
					Delta:     -it.Qty,
					Type:      store.InventoryMovementOrder,
					RefID:     order.ID,
				}); err != nil {
					return err
				}
			}
		}

		if resolution.Coupon.ID.Valid {
			if err := s.Coupons.Settle(ctx, q, resolution.Coupon.ID, uid, order.ID, discount); err != nil {
				return err
			}
		}

		// Points are debited at creation only when they cover the whole
		// order. Mixed orders keep the points reserved until the provider
		// confirms the cash remainder.
		if remaining <= 0 && appliedPoints > 0 {
			if err := q.InsertPointsEntry(ctx, store.InsertPointsEntryParams{
				UserID:  uid,
				Delta:   -appliedPoints,
				Reason:  store.PointsReasonSpend,
				RefType: pgtype.Text{String: "ORDER", Valid: true},
				RefID:   order.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Output{}, err
	}

	if obs.PointsSpentTotal != nil && order.Status == store.OrderStatusPaid && appliedPoints > 0 {
		obs.PointsSpentTotal.Add(float64(appliedPoints))
	}

	out := Output{
		OrderID:     store.UUIDString(order.ID),
		Status:      string(order.Status),
		PointsSpent: appliedPoints,
	}

	// Post-commit side effects are best effort: the order row is the source
	// of truth and is never rolled back from here.
	s.emit(ctx, events.TopicOrderCreated, order)
	if order.Status == store.OrderStatusPaid {
		s.emit(ctx, events.TopicOrderPaid, order)
		return out, nil
	}

	if s.Payments != nil {
		items := make([]store.OrderItem, 0, len(quote.Items))
		for _, it := range quote.Items {
			items = append(items, store.OrderItem{
				OrderID:        order.ID,
				ProductID:      it.Product.ID,
				Qty:            it.Qty,
				UnitPriceCents: it.UnitPrice,
			})
		}
		session, err := s.Payments.CreateSession(ctx, order, items)
		if err != nil {
			// The order stays CREATED for reconciliation; the client can
			// retry payment from the order page.
			s.Log.Error().Err(err).Str("order_id", out.OrderID).Msg("payment session failed after settlement")
		} else {
			out.URL = session.RedirectURL
		}
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, topic string, order store.Order) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":       store.UUIDString(order.ID),
		"userId":        store.UUIDString(order.UserID),
		"status":        string(order.Status),
		"totalCents":    order.TotalCents,
		"discountCents": order.DiscountCents,
		"pointsSpent":   order.PointsSpent,
		"currency":      order.Currency,
		"paidWith":      string(order.PaidWith),
	}
	if _, err := s.Events.Emit(ctx, topic, order.ID, payload); err != nil {
		s.Log.Error().Err(err).Str("topic", topic).Msg("emit domain event")
	}
}
