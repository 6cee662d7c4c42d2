// Package errors defines the typed error taxonomy for aggregation
// operations.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for logging and HTTP mapping.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters, such
	// as an empty search query.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUpstreamUnavailable indicates an external source call
	// failed or timed out. Recovered locally: the source contributes
	// zero results.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodeEmbeddingFailed indicates the embedding provider failed
	// or the text was not embeddable.
	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"
	// ErrCodeStoreUnavailable indicates the persistence layer failed.
	// Fatal for the operation that touched it.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeNotConfigured indicates a requested source has no
	// configured client.
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"
	// ErrCodeTimeout indicates the operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Error is a classified error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// UpstreamUnavailable creates an upstream unavailable error.
func UpstreamUnavailable(source string, cause error) *Error {
	return &Error{
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf("source %s unavailable", source),
		Cause:   cause,
	}
}

// EmbeddingFailed creates an embedding failure error.
func EmbeddingFailed(msg string, cause error) *Error {
	return &Error{Code: ErrCodeEmbeddingFailed, Message: msg, Cause: cause}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(cause error) *Error {
	return &Error{Code: ErrCodeStoreUnavailable, Message: "persistence layer failure", Cause: cause}
}

// NotConfigured creates a not configured error.
func NotConfigured(source string) *Error {
	return &Error{Code: ErrCodeNotConfigured, Message: fmt.Sprintf("source %s is not configured", source)}
}

// Timeout creates a timeout error.
func Timeout(cause error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: "operation timed out", Cause: cause}
}

// CodeOf returns the code of err when it is a classified error, or an
// empty code otherwise.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
