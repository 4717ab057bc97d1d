package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/touristsafety/internal/infrastructure/ratelimit"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// RateLimit limits requests per client IP. A nil limiter disables the check.
// Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			log.Error(c.Request.Context(), "rate limiter failed", err)
			c.Next() // Fail open
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			log.Warn(c.Request.Context(), "rate limit exceeded", logger.Fields{"client_ip": clientIP, "path": c.Request.URL.Path})
			abort(c, apperrors.ErrRateLimited())
			return
		}

		c.Next()
	}
}
