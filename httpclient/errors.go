package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCode classifies transport errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection
	// ErrCodeAuth indicates 401 or 403.
	ErrCodeAuth
	// ErrCodeNotFound indicates 404.
	ErrCodeNotFound
	// ErrCodeRateLimit indicates 429.
	ErrCodeRateLimit
	// ErrCodeValidation indicates another 4xx, or a request that could not be built.
	ErrCodeValidation
	// ErrCodeServer indicates 5xx.
	ErrCodeServer
	// ErrCodeCanceled indicates the caller cancelled the call.
	ErrCodeCanceled
	// ErrCodeTooLarge indicates a response body over the configured limit.
	ErrCodeTooLarge
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeCanceled:
		return "canceled"
	case ErrCodeTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Error is a classified transport error. StatusCode is zero when no
// response was received.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	// Response is the received response, when there was one.
	Response *Response
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Body returns the response body, or nil.
func (e *Error) Body() []byte {
	if e.Response == nil {
		return nil
	}
	return e.Response.Body
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// ErrResponseTooLarge is wrapped by errors from NewTooLargeError.
var ErrResponseTooLarge = errors.New("response body exceeds the size limit")

// NewTooLargeError creates an error for a response whose body is longer
// than limit bytes. The status is kept in the message only, so the error
// is not mistaken for a failed status.
func NewTooLargeError(status int, limit int64) *Error {
	return &Error{
		Code:    ErrCodeTooLarge,
		Message: fmt.Sprintf("HTTP %d body is larger than %d bytes", status, limit),
		Err:     ErrResponseTooLarge,
	}
}

// NewValidationError creates an error for a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode converts a status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int) *Error {
	e := &Error{StatusCode: statusCode, Message: http.StatusText(statusCode)}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", statusCode)
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode == http.StatusRequestTimeout:
		e.Code, e.Retryable = ErrCodeTimeout, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code = ErrCodeServer
		e.Retryable = statusCode != http.StatusNotImplemented
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// ResponseError classifies a non-success response, keeping it attached.
// Returns nil for 2xx responses.
func ResponseError(resp *Response) *Error {
	e := ClassifyStatusCode(resp.StatusCode)
	if e != nil {
		e.Response = resp
	}
	return e
}

// classifySendError maps an *http.Client error to a typed error.
func classifySendError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Code: ErrCodeCanceled, Message: "call canceled", Err: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusCode returns the status code carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
