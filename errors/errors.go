package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Detail keys attached to errors produced while building or running a call.
const (
	DetailContract  = "contract"
	DetailOperation = "operation"
	DetailStage     = "stage"
	DetailParameter = "parameter"
	DetailHook      = "hook"
	DetailStatus    = "status"
	DetailAttempts  = "attempts"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the call can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the remote status code when the error came from a response.
	HTTPStatus int `json:"-"`
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

// Is reports whether target is a code-only AppError (one of the Err sentinels)
// with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

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

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Sentinel values usable with errors.Is; they match any AppError of the same code.
var (
	ErrConfiguration  = &AppError{Code: ErrCodeConfiguration}
	ErrClientClosed   = &AppError{Code: ErrCodeClientClosed}
	ErrInvalidInput   = &AppError{Code: ErrCodeInvalidInput}
	ErrInvalidResult  = &AppError{Code: ErrCodeInvalidResult}
	ErrTransport      = &AppError{Code: ErrCodeTransport}
	ErrPipeline       = &AppError{Code: ErrCodePipeline}
	ErrRetryExhausted = &AppError{Code: ErrCodeRetryExhausted}
)

// --- Constructors ---

// Configuration creates an error for a declaration that cannot be built.
// contract and operation may be empty when unknown.
func Configuration(contract, operation, reason string) *AppError {
	e := &AppError{Code: ErrCodeConfiguration, Message: reason}
	if contract != "" {
		e.WithDetail(DetailContract, contract)
	}
	if operation != "" {
		e.WithDetail(DetailOperation, operation)
	}
	return e
}

// Configurationf is Configuration with a formatted reason.
func Configurationf(contract, operation, format string, args ...any) *AppError {
	return Configuration(contract, operation, fmt.Sprintf(format, args...))
}

// ClientClosed creates an error for a call made after the client was disposed.
func ClientClosed(contract string) *AppError {
	return &AppError{
		Code: ErrCodeClientClosed, Message: fmt.Sprintf("client %s has been closed", contract),
		Details: map[string]any{DetailContract: contract},
	}
}

// ParameterInvalid creates an error for a parameter that failed validation.
func ParameterInvalid(operation, parameter string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid value for parameter %s", parameter),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{DetailOperation: operation, DetailParameter: parameter},
		Cause:      cause,
	}
}

// ResultInvalid creates an error for a result that failed validation.
func ResultInvalid(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidResult, Message: "result failed validation",
		Details: map[string]any{DetailOperation: operation},
		Cause:   cause,
	}
}

// Transport creates an error for a failed remote call. status is zero when
// no response was received.
func Transport(operation string, status int, retryable bool, cause error) *AppError {
	msg := "remote call failed"
	if status != 0 {
		msg = fmt.Sprintf("remote call returned status %d", status)
	}
	e := &AppError{
		Code: ErrCodeTransport, Message: msg, HTTPStatus: status, Retryable: retryable,
		Details: map[string]any{DetailOperation: operation},
		Cause:   cause,
	}
	if status != 0 {
		e.Details[DetailStatus] = status
	}
	return e
}

// Timeout creates an error for a call that exceeded its deadline.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "the call took too long",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details:    map[string]any{DetailOperation: operation},
		Cause:      cause,
	}
}

// Pipeline creates an error for a hook that failed at the given stage.
func Pipeline(operation, stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodePipeline, Message: fmt.Sprintf("%s stage failed", stage),
		Details: map[string]any{DetailOperation: operation, DetailStage: stage},
		Cause:   cause,
	}
}

// RetryExhausted creates an error for a retry decorator that ran out of attempts.
func RetryExhausted(attempts int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeRetryExhausted, Message: fmt.Sprintf("gave up after %d attempts", attempts),
		Details: map[string]any{DetailAttempts: attempts},
		Cause:   cause,
	}
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// --- Inspection helpers ---

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether err carries a retryable AppError.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}
