package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// ErrNotCancelable is returned when a cancel targets an order that already
// left the CREATED state.
var ErrNotCancelable = errors.New("order is not cancelable")

// Store is the persistence seam for order reads and the cancel transaction.
type Store interface {
	store.Querier
	RunSerializable(ctx context.Context, fn func(q store.Querier) error) error
}

// Service serves the authenticated order surface.
type Service struct {
	Store  Store
	Events *events.Bus
	Log    zerolog.Logger
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int32) ([]store.Order, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return nil, badRequest("invalid user id", err)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.ListOrdersByUser(ctx, store.ListOrdersByUserParams{UserID: uid, Limit: limit, Offset: offset})
}

// Get loads one order with its line items, enforcing ownership. A foreign
// order is indistinguishable from a missing one.
func (s *Service) Get(ctx context.Context, userID, orderID string) (store.Order, []store.OrderItem, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return store.Order{}, nil, badRequest("invalid user id", err)
	}
	oid, err := store.ToUUID(orderID)
	if err != nil {
		return store.Order{}, nil, notFound(err)
	}
	o, err := s.Store.GetOrderByID(ctx, oid)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Order{}, nil, notFound(err)
		}
		return store.Order{}, nil, err
	}
	if !store.UUIDEqual(o.UserID, uid) {
		return store.Order{}, nil, notFound(nil)
	}
	items, err := s.Store.ListOrderItems(ctx, oid)
	if err != nil {
		return store.Order{}, nil, err
	}
	return o, items, nil
}

// Cancel releases a CREATED order: status flips to CANCELED and tracked
// stock is returned inside one serializable transaction. PAID orders are
// refused here, refunds go through the payment provider.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (store.Order, error) {
	uid, err := store.ToUUID(userID)
	if err != nil {
		return store.Order{}, badRequest("invalid user id", err)
	}
	oid, err := store.ToUUID(orderID)
	if err != nil {
		return store.Order{}, notFound(err)
	}

	var released store.Order
	err = s.Store.RunSerializable(ctx, func(q store.Querier) error {
		o, err := q.GetOrderByID(ctx, oid)
		if err != nil {
			if store.IsNotFound(err) {
				return notFound(err)
			}
			return err
		}
		if !store.UUIDEqual(o.UserID, uid) {
			return notFound(nil)
		}
		if o.Status != store.OrderStatusCreated {
			return common.NewAppError("ORDER_NOT_CANCELABLE", "only pending orders can be canceled", http.StatusConflict, ErrNotCancelable)
		}
		items, err := q.ListOrderItems(ctx, oid)
		if err != nil {
			return err
		}
		if err := Release(ctx, q, o, items, store.OrderStatusCanceled); err != nil {
			return err
		}
		released = o
		released.Status = store.OrderStatusCanceled
		return nil
	})
	if err != nil {
		if store.IsSerializationFailure(err) {
			return store.Order{}, common.NewAppError("CONFLICT", "cancel conflicted with a concurrent request, retry", http.StatusConflict, err)
		}
		return store.Order{}, err
	}

	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCanceled, released.ID, map[string]any{
			"orderId": store.UUIDString(released.ID),
			"userId":  store.UUIDString(released.UserID),
			"status":  string(released.Status),
		}); err != nil {
			s.Log.Error().Err(err).Msg("emit order.canceled")
		}
	}
	return released, nil
}

func badRequest(msg string, err error) error {
	return common.NewAppError("INVALID_INPUT", msg, http.StatusBadRequest, err)
}

func notFound(err error) error {
	return common.NewAppError("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, err)
}
