// Package errors defines the structured error type returned across service boundaries.
// Each AppError carries a stable code and an HTTP status so handlers can translate
// failures without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeInvalidRequest      Code = "invalid_request"
	CodeUnauthorized        Code = "unauthorized"
	CodeForbidden           Code = "forbidden"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeModelUnavailable    Code = "model_unavailable"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeChainUnavailable    Code = "chain_unavailable"
	CodeServiceUnavailable  Code = "service_unavailable"
	CodeRateLimited         Code = "rate_limited"
	CodeInternal            Code = "internal_error"
)

// ================================================================================
// AppError
// ================================================================================

// AppError represents a structured application error
type AppError struct {
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithDetail adds a key/value pair rendered in the error response body.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError.
func New(code Code, httpStatus int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps err into an AppError with the given code. The status is derived from the code.
func Wrap(err error, code Code, message string) *AppError {
	return New(code, statusForCode(code), message).WithCause(err)
}

// ================================================================================
// Predefined Constructors
// ================================================================================

// ErrInvalidRequest reports a malformed or out-of-range request.
func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrUnauthorized reports a missing or invalid credential.
func ErrUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// ErrForbidden reports a valid credential without the required role.
func ErrForbidden(message string) *AppError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

// ErrNotFound reports a missing resource.
func ErrNotFound(resource, id string) *AppError {
	return New(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource)).WithDetail("id", id)
}

// ErrModelUnavailable reports that no trained model could be loaded.
func ErrModelUnavailable(cause error) *AppError {
	return New(CodeModelUnavailable, http.StatusServiceUnavailable, "safety model is not available").WithCause(cause)
}

// ErrProviderUnavailable reports an upstream risk data source failure.
func ErrProviderUnavailable(provider string, cause error) *AppError {
	return New(CodeProviderUnavailable, http.StatusBadGateway, provider+" provider unavailable").WithCause(cause)
}

// ErrChainUnavailable reports a failed blockchain interaction.
func ErrChainUnavailable(cause error) *AppError {
	return New(CodeChainUnavailable, http.StatusBadGateway, "blockchain interaction failed").WithCause(cause)
}

// ErrRateLimited reports a client over its request budget.
func ErrRateLimited() *AppError {
	return New(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded")
}

// ErrInternal reports an unexpected failure.
func ErrInternal(message string, cause error) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, message).WithCause(cause)
}

// ================================================================================
// Repository Sentinels
// ================================================================================

var (
	// ErrRecordNotFound is returned by repositories when a lookup matches nothing.
	ErrRecordNotFound = stderrors.New("record not found")

	// ErrSigningKeyUnavailable is returned when no chain signing key is configured.
	ErrSigningKeyUnavailable = stderrors.New("signing key unavailable")
)

// ================================================================================
// Helpers
// ================================================================================

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err matches target. It mirrors the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// HTTPStatusOf returns the HTTP status for err, defaulting to 500.
func HTTPStatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func statusForCode(code Code) int {
	switch code {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeModelUnavailable, CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeProviderUnavailable, CodeChainUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
