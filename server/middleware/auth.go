package middleware

import (
	"context"
	"net/http"
	"strings"
)

// AuthConfig configures the bearer token authentication middleware.
type AuthConfig struct {
	// TokenValidator validates a token string and returns the claims.
	TokenValidator func(token string) (map[string]interface{}, error)
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

type claimsKey struct{}

// Auth returns middleware that validates Bearer tokens using the configured
// TokenValidator. Validated claims are stored in the request context and can
// be read back with ClaimsFromContext.
func Auth(cfg *AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := cfg.TokenValidator(parts[1])
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by Auth, if any.
func ClaimsFromContext(ctx context.Context) (map[string]interface{}, bool) {
	claims, ok := ctx.Value(claimsKey{}).(map[string]interface{})
	return claims, ok
}
