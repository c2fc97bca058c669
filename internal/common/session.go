package common

import "context"

type ctxKey string

const sessionKey ctxKey = "auth/session"

// Session identifies the shopper behind a request and carries the bearer
// token forwarded to the order service.
type Session struct {
	Shopper string
	Token   string
}

// WithSession stores the authenticated session on the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom extracts the session from the context if present.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok || s.Shopper == "" {
		return Session{}, false
	}
	return s, true
}

// ShopperID returns the shopper key or an empty string.
func ShopperID(ctx context.Context) string {
	s, _ := SessionFrom(ctx)
	return s.Shopper
}
