// Package server provides the HTTP server for the voicenotes daemon,
// using Gin mounted on a ServeMux with h2c so HTTP/2 works without TLS.
//
// The server applies its middleware at the root handler level, covering the
// Gin engine and any extra http.Handler mounts alike:
//
//	srv := server.New(cfg.Server, log)
//	srv.ApplyMiddleware()
//	srv.RegisterDefaultEndpoints("voicenotes", checker)
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Stop(context.Background())
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin resource sharing configuration
//   - BodySizeLimit: request body size limits for uploads
//   - RequestLogger: request logging with duration tracking
//   - Auth: bearer token authentication
//   - RateLimit: per-key sliding-window rate limiting
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /v1/health: component health aggregation
//   - /v1/version: build version information
package server
