// Package handlers implements the gin handlers of the HTTP API.
package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
)

func traceID(c *gin.Context) string {
	if id := c.GetString(string(constants.ContextKeyTraceID)); id != "" {
		return id
	}
	return c.GetString(string(constants.ContextKeyRequestID))
}

func sendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.SuccessResponse(data, traceID(c)))
}

func sendError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatusOf(err), dto.ErrorResponse(err, traceID(c)))
}

// bindJSON decodes the body into req. Decode errors become invalid_request.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		sendError(c, apperrors.Wrap(err, apperrors.CodeInvalidRequest, "malformed request body"))
		return false
	}
	return true
}

// bindJSONNumbers is bindJSON for bodies carrying free-form objects. Numbers inside
// them stay json.Number, so 1.0 is not rewritten as 1.
func bindJSONNumbers(c *gin.Context, req interface{}) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		sendError(c, apperrors.Wrap(err, apperrors.CodeInvalidRequest, "malformed request body"))
		return false
	}
	return true
}
