// Package resilience provides retry with exponential backoff and a token
// bucket rate limiter.
//
// Export connectors wrap their calls in Retry so a rate-limited or
// briefly unavailable workspace API does not lose a finished transcript:
//
//	receipt, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(),
//		func() (*export.Receipt, error) {
//			return target.Export(ctx, doc)
//		})
//
// The HTTP middleware keeps one RateLimiter per client to bound upload
// request rates.
package resilience
