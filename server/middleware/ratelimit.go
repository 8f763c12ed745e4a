package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/skillsenselab/voicenotes/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per
	// minute per key. A full minute's quota may be spent as a burst.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// RateLimit returns middleware that applies a per-key token bucket:
// each key gets a bucket of RequestsPerMinute tokens refilled at the
// same per-minute rate.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}

	buckets := &keyedLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     float64(cfg.RequestsPerMinute) / 60.0,
		burst:    cfg.RequestsPerMinute,
	}
	go buckets.cleanup()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !buckets.allow(cfg.KeyFunc(r)) {
				writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the caller's address for use as a rate limit key. The
// first X-Forwarded-For hop wins when present.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// keyedLimiter keeps one token bucket per key and drops buckets that
// have refilled completely and sat idle.
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     float64
	burst    int
}

type limiterEntry struct {
	limiter  *resilience.RateLimiter
	lastSeen time.Time
}

func (kl *keyedLimiter) allow(key string) bool {
	kl.mu.Lock()
	entry, ok := kl.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Name:  key,
				Rate:  kl.rate,
				Burst: kl.burst,
			}),
		}
		kl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	kl.mu.Unlock()

	return entry.limiter.Allow()
}

func (kl *keyedLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		kl.mu.Lock()
		for key, entry := range kl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(kl.limiters, key)
			}
		}
		kl.mu.Unlock()
	}
}
