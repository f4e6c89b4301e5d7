// Package errors provides the structured error type used across the
// orchestration core. Errors carry a stable code, a category, and an
// optional cause chain so callers can branch on kind instead of message.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfiguration indicates an invalid or incomplete model configuration
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// ErrorTypeValidation indicates invalid input or parameters
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates resource not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeRateLimited indicates a rate-limit budget was exceeded
	ErrorTypeRateLimited ErrorType = "RATE_LIMITED"

	// ErrorTypeUnavailable indicates no model could serve the request
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// ErrorTypeProvider indicates a failure reported by a model backend
	ErrorTypeProvider ErrorType = "PROVIDER"

	// ErrorTypeInfrastructure indicates an external service failure (cache, probe transport)
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE"

	// ErrorTypeInternal indicates an unexpected internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents a structured application error
type AppError struct {
	// Code is the stable error code (e.g., "MODEL_001")
	Code string `json:"code"`

	// Type categorizes the error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// HTTPStatus is the corresponding HTTP status code
	HTTPStatus int `json:"-"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// ToJSON serializes the error for API responses
func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// New creates a new AppError
func New(code string, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code string, errType ErrorType, httpStatus int, format string, args ...interface{}) *AppError {
	return New(code, errType, fmt.Sprintf(format, args...), httpStatus)
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code string, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:       code,
			Type:       appErr.Type,
			Message:    message,
			HTTPStatus: appErr.HTTPStatus,
			Cause:      appErr,
		}
	}

	return &AppError{
		Code:       code,
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      err,
	}
}

// Is checks if an error carries a specific code
func Is(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// IsType checks if an error matches a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == errType
}

// GetCode extracts the error code from an error
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Domain constructors

// ConfigurationError creates a model-configuration error
func ConfigurationError(message string) *AppError {
	return New(CodeConfigurationInvalid, ErrorTypeConfiguration, message, http.StatusBadRequest)
}

// ConfigurationErrorf creates a model-configuration error with formatted message
func ConfigurationErrorf(format string, args ...interface{}) *AppError {
	return Newf(CodeConfigurationInvalid, ErrorTypeConfiguration, http.StatusBadRequest, format, args...)
}

// NotFoundError creates a not-found error for a named resource
func NotFoundError(resource string) *AppError {
	return Newf(CodeModelNotFound, ErrorTypeNotFound, http.StatusNotFound, "%s not found", resource)
}

// RateLimitError creates a rate-limit error
func RateLimitError(message string) *AppError {
	return New(CodeRateLimited, ErrorTypeRateLimited, message, http.StatusTooManyRequests)
}

// NoModelAvailableError indicates every candidate was rate-limited,
// overloaded, or unhealthy
func NoModelAvailableError() *AppError {
	return New(CodeNoModelAvailable, ErrorTypeUnavailable,
		"no model available to serve the request", http.StatusServiceUnavailable)
}

// ProviderError wraps a failure reported by a model backend
func ProviderError(provider string, err error) *AppError {
	return &AppError{
		Code:       CodeProviderFailure,
		Type:       ErrorTypeProvider,
		Message:    fmt.Sprintf("provider '%s' request failed", provider),
		HTTPStatus: http.StatusBadGateway,
		Cause:      err,
	}
}

// InternalError creates an internal error
func InternalError(message string) *AppError {
	return New(CodeInternal, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// CacheFailureError wraps a shared cache tier operation failure
func CacheFailureError(op string, err error) *AppError {
	return &AppError{
		Code:       CodeCacheFailure,
		Type:       ErrorTypeInfrastructure,
		Message:    fmt.Sprintf("shared cache %s failed", op),
		HTTPStatus: http.StatusInternalServerError,
		Cause:      err,
	}
}

// InfrastructureError wraps an external service failure
func InfrastructureError(service string, err error) *AppError {
	return &AppError{
		Code:       CodeInfrastructure,
		Type:       ErrorTypeInfrastructure,
		Message:    fmt.Sprintf("infrastructure service '%s' error", service),
		HTTPStatus: http.StatusInternalServerError,
		Cause:      err,
	}
}
