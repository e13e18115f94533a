// Package middleware holds the chi middleware chain: CORS, security
// headers, bearer-JWT auth, and per-client rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/autofi/ai-engine/security"
	"github.com/rs/zerolog"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// AuthMiddleware validates the bearer JWT on every request it wraps and
// attaches the resulting security.Claims to the request context.
type AuthMiddleware struct {
	verifier *security.Verifier
	logger   zerolog.Logger
}

func NewAuthMiddleware(verifier *security.Verifier, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger.With().Str("component", "auth").Logger()}
}

// Handler enforces bearer auth, rejecting with 401 on any missing or
// invalid token.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, "missing authorization header")
			return
		}
		token := header
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			token = header[len("bearer "):]
		}
		if token == "" {
			unauthorized(w, "empty bearer token")
			return
		}

		claims, err := am.verifier.Verify(token)
		if err != nil {
			am.logger.Debug().Err(err).Msg("token rejected")
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}

// ClaimsFromContext recovers the authenticated caller's claims. The
// second return value is false for unauthenticated contexts (e.g. the
// popular-queries and health endpoints, which carry no auth middleware).
func ClaimsFromContext(ctx context.Context) (security.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(security.Claims)
	return c, ok
}
