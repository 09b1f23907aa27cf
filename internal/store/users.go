package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getAddressByID = `
SELECT id, user_id, label FROM addresses WHERE id = $1
`

// GetAddressByID fetches an address so callers can verify ownership.
func (q *Queries) GetAddressByID(ctx context.Context, id pgtype.UUID) (Address, error) {
	row := q.db.QueryRow(ctx, getAddressByID, id)
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label)
	return a, err
}

const getPlanByUser = `
SELECT p.code, p.premium, p.points_policy
FROM memberships m
JOIN plans p ON p.code = m.plan_code
WHERE m.user_id = $1 AND m.active
`

// GetPlanByUser resolves the caller's active membership plan.
func (q *Queries) GetPlanByUser(ctx context.Context, userID pgtype.UUID) (Plan, error) {
	row := q.db.QueryRow(ctx, getPlanByUser, userID)
	var p Plan
	err := row.Scan(&p.Code, &p.Premium, &p.PointsPolicy)
	return p, err
}

const getUserEmail = `
SELECT email FROM users WHERE id = $1
`

// GetUserEmail returns the user's notification address.
func (q *Queries) GetUserEmail(ctx context.Context, userID pgtype.UUID) (string, error) {
	var email string
	err := q.db.QueryRow(ctx, getUserEmail, userID).Scan(&email)
	return email, err
}

const insertDomainEvent = `
INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, now())
RETURNING id, topic, aggregate_id, payload, occurred_at
`

// InsertDomainEventParams persists one emitted fact.
type InsertDomainEventParams struct {
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
}

// InsertDomainEvent appends a domain event for downstream consumers.
func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	row := q.db.QueryRow(ctx, insertDomainEvent, NewUUID(), arg.Topic, arg.AggregateID, arg.Payload)
	var ev DomainEvent
	err := row.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
