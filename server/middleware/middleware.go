package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware wraps an http.Handler with additional behavior.
// This is the standard Go middleware signature and the single middleware type
// for the entire server — it works with all routes including the Gin engine
// and any other http.Handler mounted on the ServeMux.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap adapts a standard Middleware for use in a Gin handler chain.
// Use this to apply a Middleware to a single route or group instead of the
// whole server. When the middleware short-circuits without calling its next
// handler, the Gin chain is aborted.
//
// Note: middleware that wraps http.ResponseWriter (e.g. RequestLogger) may not
// fully integrate with gin.Context.Writer. Prefer applying such middleware at
// the server level via ApplyMiddleware.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			// Propagate any request modifications (e.g. added context) back to Gin.
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}

// writeJSONError sends a minimal JSON error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "{\"error\":%q}", message)
}
