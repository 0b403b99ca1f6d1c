package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records one served request
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, elapsed time.Duration)
}

// HTTPMetrics returns a middleware reporting every request to obs.
// The matched route pattern is used as the path label to keep cardinality
// bounded; unmatched routes are reported with an empty path.
func HTTPMetrics(obs HTTPObserver) gin.HandlerFunc {
	if obs == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		obs.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
