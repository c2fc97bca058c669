package obs

import (
	"context"

	"github.com/rs/zerolog"
)

type routePatternKey struct{}

type sessionHolderKey struct{}

type sessionHolder struct {
	shopper string
}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

func withSessionHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, sessionHolderKey{}, h)
}

// AnnotateShopper records the shopper on the request log line and adds it to
// the context logger.
func AnnotateShopper(ctx context.Context, shopper string) context.Context {
	if h, ok := ctx.Value(sessionHolderKey{}).(*sessionHolder); ok {
		h.shopper = shopper
	}
	logger := zerolog.Ctx(ctx).With().Str("shopper", shopper).Logger()
	return logger.WithContext(ctx)
}
