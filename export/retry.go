package export

import (
	"context"
	"time"

	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/resilience"
)

// WithRetry wraps a target so transient failures are retried with
// exponential backoff. A finished transcript should not lose its export
// to a single 429 from the workspace API. RetryIf defaults to Transient
// and OnRetry to a warning log when unset.
func WithRetry(target Target, cfg resilience.RetryConfig, log *logger.Logger) Target {
	if cfg.RetryIf == nil {
		cfg.RetryIf = Transient
	}
	if cfg.OnRetry == nil && log != nil {
		name := target.Name()
		cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
			log.Warn("Export attempt failed, retrying", map[string]interface{}{
				"target":          name,
				"attempt":         attempt,
				"backoff":         backoff.String(),
				logger.FieldError: err.Error(),
			})
		}
	}
	return &retryTarget{Target: target, cfg: cfg}
}

type retryTarget struct {
	Target
	cfg resilience.RetryConfig
}

func (rt *retryTarget) Export(ctx context.Context, doc Document) (*Receipt, error) {
	return resilience.Retry(ctx, rt.cfg, func() (*Receipt, error) {
		return rt.Target.Export(ctx, doc)
	})
}
