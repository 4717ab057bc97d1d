package dto

import (
	"time"

	"github.com/turtacn/touristsafety/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code        errors.Code       `json:"code"`
	Message     string            `json:"message"`
	Description string            `json:"description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应. Errors that are not AppErrors are reported as internal
// errors without leaking their text.
func ErrorResponse(err error, traceID string) *APIResponse {
	var errorDTO *ErrorDTO
	if appErr, ok := errors.As(err); ok {
		errorDTO = &ErrorDTO{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
		if cause := appErr.Unwrap(); cause != nil && appErr.Code != errors.CodeInternal {
			errorDTO.Description = cause.Error()
		}
	} else {
		errorDTO = &ErrorDTO{
			Code:    errors.CodeInternal,
			Message: "Internal server error",
		}
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}
