package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/response"
)

// IdentityResolver turns validated token claims into the caller's
// identity, rejecting revoked tokens and deactivated users.
type IdentityResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (auth.Identity, error)
}

// Authenticate requires a bearer token. Browsers cannot set headers on
// WebSocket or EventSource requests, so a ?token= query value is accepted
// as well.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				response.Unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(raw)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			id, err := resolver.Resolve(r.Context(), claims)
			if err != nil {
				logger.WithCtx(r.Context()).Info("auth: token rejected", "user_id", claims.UserID, "error", err)
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", id.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
