package payment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// TxStore is the order state access webhook settlement needs.
type TxStore interface {
	store.Querier
	RunSerializable(ctx context.Context, fn func(q store.Querier) error) error
}

// Webhook processes provider callbacks that confirm or abandon payment of an
// order's remainder, transitioning CREATED to PAID or CANCELED.
type Webhook struct {
	Store     TxStore
	Providers map[string]Provider
	Replay    *redis.Client
	ReplayTTL time.Duration
	Events    *events.Bus
}

// Handle verifies, deduplicates, and settles a provider notification.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil || h.Providers == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		h.count(providerKey, "invalid")
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		h.count(providerKey, "invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:%s:%s", providerKey, common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", "replay store unavailable", nil)
			return
		}
		if !ok {
			h.count(providerKey, "replay")
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}

	orderID, err := store.ToUUID(result.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ORDER_ID", "invalid order identifier", nil)
		return
	}

	ctx := r.Context()
	ord, err := h.Store.GetOrderByID(ctx, orderID)
	if err != nil {
		if store.IsNotFound(err) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "ORDER_FETCH_ERROR", "order lookup failed", nil)
		return
	}
	if ord.Status == store.OrderStatusPaid {
		// already settled, treat as idempotent success
		h.count(providerKey, "duplicate")
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": string(ord.Status)}})
		return
	}
	remainder := pricing.Remaining(ord.TotalCents, ord.DiscountCents, ord.PointsSpent)
	if result.AmountCents > 0 && result.AmountCents != remainder {
		h.count(providerKey, "amount_mismatch")
		common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		return
	}

	// The reads above are advisory fast paths. The transition itself re-reads
	// the order inside the transaction: a concurrent cancel or a racing
	// webhook may have moved it past CREATED by now.
	applied := false
	current := ord.Status
	switch result.Status {
	case StatusPaid:
		err = h.Store.RunSerializable(ctx, func(q store.Querier) error {
			fresh, freshErr := q.GetOrderByID(ctx, ord.ID)
			if freshErr != nil {
				return freshErr
			}
			current = fresh.Status
			if fresh.Status != store.OrderStatusCreated {
				return nil
			}
			if err := q.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: fresh.ID, Status: store.OrderStatusPaid}); err != nil {
				return err
			}
			if fresh.PaidWith == store.PaidWithMixed && fresh.PointsSpent > 0 {
				// the reservation becomes a real debit now that payment confirmed
				if err := q.InsertPointsEntry(ctx, store.InsertPointsEntryParams{
					UserID:  fresh.UserID,
					Delta:   -fresh.PointsSpent,
					Reason:  store.PointsReasonSpend,
					RefType: pgtype.Text{String: "ORDER", Valid: true},
					RefID:   fresh.ID,
				}); err != nil {
					return err
				}
			}
			applied = true
			current = store.OrderStatusPaid
			return nil
		})
		if err == nil && applied && h.Events != nil {
			_, _ = h.Events.Emit(ctx, events.TopicOrderPaid, ord.ID, map[string]any{
				"orderId": store.UUIDString(ord.ID),
				"userId":  store.UUIDString(ord.UserID),
				"amount":  remainder,
			})
		}
	case StatusFailed, StatusExpired:
		err = h.Store.RunSerializable(ctx, func(q store.Querier) error {
			fresh, freshErr := q.GetOrderByID(ctx, ord.ID)
			if freshErr != nil {
				return freshErr
			}
			current = fresh.Status
			if fresh.Status != store.OrderStatusCreated {
				return nil
			}
			items, itemsErr := q.ListOrderItems(ctx, fresh.ID)
			if itemsErr != nil {
				return itemsErr
			}
			if err := order.Release(ctx, q, fresh, items, store.OrderStatusCanceled); err != nil {
				return err
			}
			applied = true
			current = store.OrderStatusCanceled
			return nil
		})
		if err == nil && applied && h.Events != nil {
			_, _ = h.Events.Emit(ctx, events.TopicOrderCanceled, ord.ID, map[string]any{
				"orderId": store.UUIDString(ord.ID),
				"userId":  store.UUIDString(ord.UserID),
				"reason":  strings.ToLower(result.Status),
			})
		}
	default:
		// pending or unknown states carry no transition
		h.count(providerKey, "ok")
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": result.Status}})
		return
	}
	if err != nil {
		h.count(providerKey, "error")
		common.JSONError(w, http.StatusInternalServerError, "SETTLEMENT_ERROR", "unable to apply webhook", nil)
		return
	}
	if !applied {
		// order left CREATED between our read and the transaction
		h.count(providerKey, "stale")
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": string(current)}})
		return
	}
	h.count(providerKey, "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": string(current)}})
}

func (h Webhook) count(provider, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(provider, result).Inc()
	}
}
