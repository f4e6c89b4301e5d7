package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
)

// Logging logs one structured line per request with method, path,
// status, and latency
func Logging(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := logger.WithContext(c.Request.Context())
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", c.Writer.Status()),
			logging.Int64("latency_ms", time.Since(start).Milliseconds()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
			entry.Warn("http request", fields...)
			return
		}
		entry.Info("http request", fields...)
	}
}
