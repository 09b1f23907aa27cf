package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern records the chi route pattern that matched the request so
// metrics and logs label by pattern instead of raw path (no per-order-id
// cardinality).
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the matched pattern, or "" when the request
// never hit a routed handler.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(routePatternKey{}).(string)
	return pattern
}
