package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voicenotes/observability"
	"github.com/skillsenselab/voicenotes/version"
)

// HealthChecker returns health status for the service's components, such as
// the recognition backends and decoders.
type HealthChecker func(ctx context.Context) []observability.Health

// Health returns a handler that reports service health including component
// statuses. Any component down yields 503; degraded components keep 200.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(serviceName, version.GetShortVersion())
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				sh.AddComponent(h)
			}
		}

		httpStatus := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}
