// Package middleware holds the HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

// TokenParser turns a bearer token into an actor.
type TokenParser interface {
	Parse(raw string) (auth.Actor, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's actor on the request context.
func Authenticate(tokens TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				httpx.Error(w, logger, apperr.Unauthorized("MISSING_TOKEN", "missing bearer token"))
				return
			}
			actor, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				httpx.Error(w, logger, apperr.Unauthorized("INVALID_TOKEN", "invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		})
	}
}

// RequireScope rejects authenticated requests whose actor lacks scope.
func RequireScope(access auth.AccessControl, scope auth.Scope, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFrom(r.Context())
			if !ok {
				httpx.Error(w, logger, apperr.Unauthorized("MISSING_TOKEN", "missing bearer token"))
				return
			}
			if !access.Check(actor, scope) {
				httpx.Error(w, logger, apperr.Forbidden("FORBIDDEN", "role %s lacks %s", actor.Role, scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
