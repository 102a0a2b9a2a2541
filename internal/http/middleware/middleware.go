// Package middleware holds router-level gin middleware that does not belong
// in the shared httpkit.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestTimer records request duration into the gin context for downstream
// middleware.
func RequestTimer() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		c.Set("request_duration_ms", float64(time.Since(start).Microseconds())/1000.0)
	}
}
