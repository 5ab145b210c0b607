package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies application errors for transport mapping and logging.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeAuthorization  ErrorType = "AUTHORIZATION_ERROR"
	ErrorTypeRateLimited    ErrorType = "RATE_LIMITED"
	ErrorTypeSessionExpired ErrorType = "SESSION_EXPIRED"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict       ErrorType = "CONFLICT_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

// Session expiry reason codes surfaced to clients so they can show the
// appropriate message ("log in again" vs "you were idle too long").
const (
	ReasonIdleTimeout     = "idle_timeout"
	ReasonAbsoluteTimeout = "absolute_timeout"
	ReasonSessionNotFound = "session_not_found"
)

// Common application errors
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDisabled        = errors.New("account disabled")
	ErrRateLimited            = errors.New("too many failed login attempts")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionExpiredIdle     = errors.New("session expired: idle timeout")
	ErrSessionExpiredAbsolute = errors.New("session expired: absolute timeout")
	ErrCsrfMismatch           = errors.New("csrf token mismatch")
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailTaken             = errors.New("email is already registered")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInternalServer         = errors.New("internal server error")
)

// AppError represents an application error with enough context to render
// a response and log the failure.
type AppError struct {
	Type     ErrorType              `json:"type"`
	Message  string                 `json:"message"`
	Code     string                 `json:"code,omitempty"`
	HTTPCode int                    `json:"-"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
	}
}

// WithCode adds a machine-readable reason code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error constructors

// NewAuthenticationError creates a 401 error with a generic message.
// Callers must not leak whether the account exists.
func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

// NewAuthorizationError creates a 403 error
func NewAuthorizationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthorization, message, http.StatusForbidden)
}

// NewRateLimitedError creates a 429 error with a retry-after hint in seconds
func NewRateLimitedError(message string, retryAfterSeconds int) *AppError {
	return NewAppError(ErrorTypeRateLimited, message, http.StatusTooManyRequests).
		WithDetail("retry_after_seconds", retryAfterSeconds)
}

// NewSessionExpiredError creates a 401 error carrying the expiry reason code
// (ReasonIdleTimeout or ReasonAbsoluteTimeout), distinct from ReasonSessionNotFound.
func NewSessionExpiredError(reason string) *AppError {
	return NewAppError(ErrorTypeSessionExpired, "session expired", http.StatusUnauthorized).
		WithCode(reason)
}

// NewCsrfMismatchError creates a 403 error distinct from authentication failure
// so clients can distinguish "log in again" from "refresh token and retry".
func NewCsrfMismatchError() *AppError {
	return NewAppError(ErrorTypeAuthorization, "invalid CSRF token", http.StatusForbidden).
		WithCode("csrf_mismatch")
}

// NewValidationError creates a 400 validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict)
}

// NewInternalError creates an opaque 500 error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// ValidationError represents a single failed validation rule
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every rule a value failed so the response can
// enumerate all of them at once.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
}

// NewValidationErrors creates a new validation errors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]ValidationError, 0)}
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field, message string) *ValidationErrors {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
	return ve
}

// HasErrors returns true if there are validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError converts validation errors to an AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	if !ve.HasErrors() {
		return nil
	}
	appErr := NewValidationError("validation failed")
	appErr.WithDetail("validation_errors", ve.Errors)
	return appErr
}

// Helper functions for common error scenarios

// WrapError wraps an error with context
func WrapError(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// IsAuthentication checks if an error is an authentication failure
func IsAuthentication(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeAuthentication
	}
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUnauthorized)
}

// IsSessionExpired checks if an error is an expired-session failure
func IsSessionExpired(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeSessionExpired
	}
	return errors.Is(err, ErrSessionExpiredIdle) || errors.Is(err, ErrSessionExpiredAbsolute)
}

// IsRateLimited checks if an error is a lockout rejection
func IsRateLimited(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeRateLimited
	}
	return errors.Is(err, ErrRateLimited)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeNotFound
	}
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrSessionNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeValidation
	}
	var ve *ValidationErrors
	return errors.As(err, &ve)
}
