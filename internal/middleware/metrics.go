package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ndvi-gateway/internal/service"
)

// Metrics returns middleware that captures request metrics using the provided
// service. Unmatched routes are folded into one label so random paths cannot
// blow up series cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
