package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the per-request correlation ID.
const HeaderRequestID = "X-Request-Id"

// RequestID returns middleware that ensures every request carries a unique
// X-Request-Id, generating one when the client did not send any. The ID is
// set on both the request (for downstream handlers) and the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r)
		})
	}
}
