package common

import "context"

type ctxKey string

const (
	userIDKey   ctxKey = "auth/user-id"
	planCodeKey ctxKey = "auth/plan-code"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithPlanCode stores the caller's resolved membership plan code on the context.
func WithPlanCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, planCodeKey, code)
}

// PlanCode extracts the membership plan code resolved by the auth pipeline.
func PlanCode(ctx context.Context) (string, bool) {
	v := ctx.Value(planCodeKey)
	if v == nil {
		return "", false
	}
	code, ok := v.(string)
	return code, ok
}
