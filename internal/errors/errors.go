package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a mailsift error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrSourceTooLarge    ErrorCode = "SOURCE_TOO_LARGE"   // 413
	ErrUnsupportedSource ErrorCode = "UNSUPPORTED_SOURCE" // 415
	ErrCancelled         ErrorCode = "CANCELLED"          // 499
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// SiftError represents a structured error with code, status, and details.
type SiftError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SiftError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SiftError {
	return &SiftError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record (e.g. no scan has run yet).
func NewNotFound(what string) *SiftError {
	return &SiftError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", what),
		Details: map[string]any{"identifier": what},
	}
}

// NewFileNotFound creates a 404 error for a source or import path that does not exist.
func NewFileNotFound(path string) *SiftError {
	return &SiftError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewSourceTooLarge creates a 413 error when a source exceeds max_source_bytes.
func NewSourceTooLarge(path string, max int64) *SiftError {
	return &SiftError{
		Code:    ErrSourceTooLarge,
		Status:  413,
		Message: fmt.Sprintf("source exceeds maximum size of %d bytes: %s", max, path),
		Details: map[string]any{"path": path, "max_bytes": max},
	}
}

// NewUnsupportedSource creates a 415 error for sources mailsift will not read,
// such as remote URLs.
func NewUnsupportedSource(source, reason string) *SiftError {
	return &SiftError{
		Code:    ErrUnsupportedSource,
		Status:  415,
		Message: fmt.Sprintf("unsupported source %q: %s", source, reason),
		Details: map[string]any{"source": source},
	}
}

// NewCancelled creates a 499 error when an operation stops because its context ended.
func NewCancelled(op string) *SiftError {
	return &SiftError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *SiftError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &SiftError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a SiftError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SiftError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
