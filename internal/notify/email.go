package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/queue"
	"github.com/noah-isme/backend-pasar/internal/store"
)

type taskEnvelope struct {
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
}

func encodeTask(event store.DomainEvent) []byte {
	raw, _ := json.Marshal(taskEnvelope{
		Topic:       event.Topic,
		AggregateID: store.UUIDString(event.AggregateID),
		Payload:     event.Payload,
	})
	return raw
}

// EmailQuerier is the lookup the dispatcher needs to resolve recipients.
type EmailQuerier interface {
	GetUserEmail(ctx context.Context, userID pgtype.UUID) (string, error)
}

// EmailDispatcher is the worker-side handler turning queued confirmation
// tasks into outbound mail.
type EmailDispatcher struct {
	Q    EmailQuerier
	Mail common.EmailSender
	From string
	Log  zerolog.Logger
}

// Handle processes one queued task. A missing or emailless user is treated
// as delivered, retrying cannot fix it.
func (d EmailDispatcher) Handle(ctx context.Context, t queue.Task) error {
	result := "ok"
	defer func() {
		if obs.NotifyDispatchTotal != nil {
			obs.NotifyDispatchTotal.WithLabelValues(result).Inc()
		}
	}()

	var env taskEnvelope
	if err := json.Unmarshal(t.Payload, &env); err != nil {
		result = "discarded"
		d.Log.Error().Err(err).Msg("notify: malformed task payload")
		return nil
	}
	payload := map[string]any{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			result = "discarded"
			return nil
		}
	}

	to, err := d.recipient(ctx, payload)
	if err != nil {
		result = "error"
		return err
	}
	if to == "" {
		result = "skipped"
		return nil
	}

	if err := d.Mail.Send(to, subjectFor(env.Topic), bodyFor(env.Topic, payload)); err != nil {
		result = "error"
		return err
	}
	return nil
}

func (d EmailDispatcher) recipient(ctx context.Context, payload map[string]any) (string, error) {
	if raw, ok := payload["email"].(string); ok && strings.TrimSpace(raw) != "" {
		return strings.TrimSpace(raw), nil
	}
	rawID, ok := payload["userId"].(string)
	if !ok || rawID == "" || d.Q == nil {
		return "", nil
	}
	uid, err := store.ToUUID(rawID)
	if err != nil {
		return "", nil
	}
	email, err := d.Q.GetUserEmail(ctx, uid)
	if err != nil {
		if store.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return email, nil
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return "We received your order"
	case events.TopicOrderPaid:
		return "Payment confirmed"
	case events.TopicOrderCanceled:
		return "Your order was canceled"
	default:
		return "Order update"
	}
}

func bodyFor(topic string, payload map[string]any) string {
	orderID, _ := payload["orderId"].(string)
	var b strings.Builder
	switch topic {
	case events.TopicOrderPaid:
		fmt.Fprintf(&b, "Your order %s is paid.\n", orderID)
		if points, ok := payload["pointsSpent"].(float64); ok && points > 0 {
			fmt.Fprintf(&b, "Points redeemed: %d.\n", int64(points))
		}
		if total, ok := payload["totalCents"].(float64); ok {
			currency, _ := payload["currency"].(string)
			fmt.Fprintf(&b, "Order total: %.2f %s.\n", total/100, currency)
		}
	case events.TopicOrderCanceled:
		fmt.Fprintf(&b, "Your order %s was canceled. Reserved stock and points have been released.\n", orderID)
	default:
		fmt.Fprintf(&b, "Your order %s has an update.\n", orderID)
	}
	return b.String()
}
