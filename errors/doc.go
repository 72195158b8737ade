// Package errors provides the structured error type returned by generated
// clients. Every failure carries a machine-readable code, a retryable flag
// and call context (operation, stage, parameter) in its details, while the
// original cause stays reachable through errors.As and errors.Is.
package errors
