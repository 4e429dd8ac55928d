package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if resubmitting the same request may succeed.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the recommended HTTP status code for this error.
func (e *AppError) HTTPStatus() int { return HTTPStatus(e.Code) }

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// --- Common Error Constructors ---

// InvalidConfig creates an error for a configuration field that failed validation.
func InvalidConfig(field, reason string) *AppError {
	e := New(ErrCodeInvalidConfig, fmt.Sprintf("invalid configuration: %s %s", field, reason))
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Precondition creates an error for a violated call precondition.
func Precondition(reason string) *AppError {
	return New(ErrCodePrecondition, reason)
}

// InvalidInput creates an error for a malformed request.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, fmt.Sprintf("invalid input: %s", reason))
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation creates an error for struct validation failures.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidConfig, message)
}

// NotFound creates an error for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).WithDetails(details)
}

// LimitReached creates an error for an exhausted resource limit.
func LimitReached(resource string, limit int) *AppError {
	return New(ErrCodeLimitReached, fmt.Sprintf("%s limit of %d reached", resource, limit)).
		WithDetails(map[string]any{"resource": resource, "limit": limit})
}

// Unauthorized creates an error for a request without valid credentials.
func Unauthorized(reason string) *AppError {
	return New(ErrCodeUnauthorized, reason)
}

// Inference wraps an oracle failure. The cause is kept unmodified so
// callers can still match it with errors.Is / errors.As.
func Inference(oracle string, cause error) *AppError {
	return New(ErrCodeInference, fmt.Sprintf("%s inference failed", oracle)).
		WithDetail("oracle", oracle).
		WithCause(cause)
}

// ServiceUnavailable creates an error for a backend that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service)).
		WithDetail("service", service)
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
