package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/obs"
)

// Middleware wires the shopper session into HTTP handlers.
type Middleware struct {
	Verifier Verifier
}

// RequireAuth rejects requests without a valid bearer token with 401.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.Verifier.Verify(BearerToken(r))
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("auth_rejected")
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid token", nil)
			return
		}
		ctx := common.WithSession(r.Context(), session)
		ctx = obs.AnnotateShopper(ctx, session.Shopper)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
