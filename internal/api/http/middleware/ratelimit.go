package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/ratelimit"
)

// RateLimit rejects clients that exceed the limiter's budget. Limiter
// failures let the request through.
func RateLimit(limiter ratelimit.Limiter, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("Rate limit: limiter unavailable", "error", err.Error())
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			abortWithError(c, apierror.NewErrTooManyRequests())
			return
		}
		c.Next()
	}
}
