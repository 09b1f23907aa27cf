package notify

import (
	"context"

	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/queue"
	"github.com/noah-isme/backend-pasar/internal/store"
)

const orderConfirmationTask = "order-confirmation"

// OrderConfirmationTask returns the queue kind used for confirmation emails.
func OrderConfirmationTask() string {
	return orderConfirmationTask
}

// QueueNotifier forwards order lifecycle events onto the task queue so
// delivery happens off the request path. It implements events.Notifier.
type QueueNotifier struct {
	Queue       queue.Enqueuer
	MaxAttempts int
	Topics      map[string]bool
}

// Notify enqueues a confirmation task for the event. The event id doubles as
// the idempotency key, so re-emitting an event never sends a second email.
func (n QueueNotifier) Notify(ctx context.Context, event store.DomainEvent) error {
	if n.Queue.R == nil {
		return nil
	}
	if n.Topics != nil {
		if enabled, ok := n.Topics[event.Topic]; ok && !enabled {
			return nil
		}
	}
	maxAttempts := n.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	return n.Queue.Enqueue(ctx, queue.Task{
		Kind:           orderConfirmationTask,
		Payload:        encodeTask(event),
		IdempotencyKey: store.UUIDString(event.ID) + ":" + event.Topic,
		MaxAttempts:    maxAttempts,
	})
}

// DefaultTopics enables the topics that produce customer-facing email.
func DefaultTopics() map[string]bool {
	return map[string]bool{
		events.TopicOrderCreated:  false,
		events.TopicOrderPaid:     true,
		events.TopicOrderCanceled: true,
	}
}
