package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Build-time errors
const (
	// ErrCodeConfiguration indicates a contract or hook declaration that cannot be built.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeClientClosed indicates a call on a disposed client.
	ErrCodeClientClosed ErrorCode = "CLIENT_CLOSED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates a parameter failed its declared rules.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidResult indicates an extracted result failed validation.
	ErrCodeInvalidResult ErrorCode = "INVALID_RESULT"
)

// Transport errors
const (
	// ErrCodeTransport indicates the remote call failed or returned a non-success status.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeTimeout indicates the call exceeded its timeout.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeConnectionFailed indicates a failed connection to the remote host.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeRateLimited indicates the call was rejected by a rate limit.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeServiceUnavailable indicates the remote host is unavailable or a breaker is open.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Pipeline errors
const (
	// ErrCodePipeline indicates a hook failed while a call was running.
	ErrCodePipeline ErrorCode = "PIPELINE_ERROR"
	// ErrCodeRetryExhausted indicates a retry decorator ran out of attempts.
	ErrCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:            true,
	ErrCodeConnectionFailed:   true,
	ErrCodeRateLimited:        true,
	ErrCodeServiceUnavailable: true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
