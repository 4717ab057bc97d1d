package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/touristsafety/internal/application/dto"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// AccessLog logs one line per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Warn(c.Request.Context(), "request failed", fields)
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			log.Debug(c.Request.Context(), "request processed", fields)
		default:
			log.Info(c.Request.Context(), "request processed", fields)
		}
	}
}

// Recovery turns a panic into a 500 response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				log.Error(c.Request.Context(), "panic recovered", err, logger.Fields{"path": c.Request.URL.Path})
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					dto.ErrorResponse(apperrors.ErrInternal("unexpected error", err), TraceID(c)))
			}
		}()
		c.Next()
	}
}
