package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/edge-landings/api/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			serveWithClaims(provider, next, w, r, strings.TrimPrefix(authHeader, "Bearer "))
		})
	}
}

// OptionalAuth lets requests without an Authorization header through
// untouched. A header that is present must carry a valid token.
func OptionalAuth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || provider == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			serveWithClaims(provider, next, w, r, strings.TrimPrefix(authHeader, "Bearer "))
		})
	}
}

func serveWithClaims(provider *jwtinfra.Provider, next http.Handler, w http.ResponseWriter, r *http.Request, tokenStr string) {
	claims, err := provider.Verify(tokenStr)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	ctx := context.WithValue(r.Context(), ClaimsKey, claims)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
