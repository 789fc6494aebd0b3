// Package errors defines the gateway's structured error type and the single
// translation point from error codes to wire-level HTTP statuses.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for better error handling
type ErrorCode string

const (
	// Infrastructure errors
	ErrCodeConfigLoad         ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeBadUpstreamPayload ErrorCode = "BAD_UPSTREAM_PAYLOAD"

	// Request processing errors
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// GatewayError represents a structured error with context
type GatewayError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Service   string                 `json:"service,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("[%s][%s] %s", e.Code, e.Service, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error code
func (e *GatewayError) Is(target error) bool {
	if t, ok := target.(*GatewayError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata adds metadata to the error
func (e *GatewayError) WithMetadata(key string, value interface{}) *GatewayError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
// This is the only place where error codes map to wire statuses; internal
// error types never cross the dispatch boundary unmapped.
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeInvalidRequest:
		return 400
	case ErrCodeAuthenticationFailed:
		return 401
	case ErrCodeRateLimitExceeded:
		return 429
	case ErrCodeBadUpstreamPayload:
		return 502
	case ErrCodeServiceUnavailable:
		return 503
	default:
		return 500
	}
}

// NewError creates a new GatewayError
func NewError(code ErrorCode, message string) *GatewayError {
	return &GatewayError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewErrorWithCause creates a new GatewayError with an underlying cause
func NewErrorWithCause(code ErrorCode, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
		Details:   cause.Error(),
	}
}

// NewServiceUnavailableError creates the error returned when the outbound
// call to a backend fails at the transport level. The detail carries the
// transport error text, never the transport error type itself.
func NewServiceUnavailableError(service string, cause error) *GatewayError {
	err := NewErrorWithCause(
		ErrCodeServiceUnavailable,
		fmt.Sprintf("service %s is unavailable: %v", service, cause),
		cause,
	)
	err.Service = service
	return err
}

// NewBadUpstreamPayloadError creates the error returned when a backend
// declares a JSON content type but its body does not decode as JSON.
func NewBadUpstreamPayloadError(service string, cause error) *GatewayError {
	err := NewErrorWithCause(
		ErrCodeBadUpstreamPayload,
		fmt.Sprintf("service %s returned a malformed JSON response", service),
		cause,
	)
	err.Service = service
	return err
}

// IsGatewayError checks if an error is a GatewayError
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ErrCodeInternalError
}

// GetHTTPStatusCode gets the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.HTTPStatusCode()
	}
	return 500
}
