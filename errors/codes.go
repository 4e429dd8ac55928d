package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Usage errors. Resubmitting the same request never succeeds.
const (
	// ErrCodeInvalidConfig indicates a pipeline or service configuration is invalid.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodePrecondition indicates a call violated a documented precondition
	// (empty batch, wrong chunk length, wrong sample rate).
	ErrCodePrecondition ErrorCode = "PRECONDITION_FAILED"
	// ErrCodeInvalidInput indicates a malformed request payload.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeLimitReached indicates a configured resource limit was hit.
	ErrCodeLimitReached ErrorCode = "LIMIT_REACHED"
	// ErrCodeUnauthorized indicates a missing or invalid bearer token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Runtime errors.
const (
	// ErrCodeInference indicates a segmentation or embedding oracle failed
	// or returned output that does not match its contract.
	ErrCodeInference ErrorCode = "INFERENCE_FAILED"
	// ErrCodeServiceUnavailable indicates a backend is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeInference:          true,
	ErrCodeServiceUnavailable: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Retrying is always the caller's decision; the pipeline never retries.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var httpStatuses = map[ErrorCode]int{
	ErrCodeInvalidConfig:      http.StatusInternalServerError,
	ErrCodePrecondition:       http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeLimitReached:       http.StatusTooManyRequests,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInference:          http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// HTTPStatus returns the recommended HTTP status for a code.
func HTTPStatus(code ErrorCode) int {
	if s, ok := httpStatuses[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
