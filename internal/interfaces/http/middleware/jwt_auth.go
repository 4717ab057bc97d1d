package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/infrastructure/crypto"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireAdmin protects routes that need an admin token. A nil manager rejects
// every request, so admin routes stay closed when no secret is configured.
func RequireAdmin(tokens crypto.TokenManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearer(c.GetHeader(constants.HeaderAuthorization))
		if tokenStr == "" || tokens == nil {
			abort(c, apperrors.ErrUnauthorized("admin token required"))
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			log.Warn(c.Request.Context(), "admin token rejected", logger.Fields{"error": err.Error()})
			abort(c, err)
			return
		}
		if claims.Role != constants.AdminRole {
			log.Warn(c.Request.Context(), "token lacks admin role", logger.Fields{"subject": claims.Subject, "role": claims.Role})
			abort(c, apperrors.ErrForbidden("admin role required"))
			return
		}

		c.Set(string(constants.ContextKeySubject), claims.Subject)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	status := apperrors.HTTPStatusOf(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="touristsafety"`)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse(err, TraceID(c)))
}

// TraceID returns the trace id of the request, if tracing assigned one.
func TraceID(c *gin.Context) string {
	return c.GetString(string(constants.ContextKeyTraceID))
}
