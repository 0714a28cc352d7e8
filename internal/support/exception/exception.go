// Package exception provides the error types shared by recordhub components.
//
// BatchError classifies infrastructure failures by module and retryability.
// LoadError and ValidationError carry the row/header diagnostics produced while ingesting a file.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BatchError is an error raised by a recordhub module.
// It holds the module where the error occurred, a message, the wrapped original error
// and whether the failed operation may be retried.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "loader", "store", "processor", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether the failed operation may be retried.
	isRetryable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError.
//
// Parameters:
//
//	module: The module where the error occurred.
//	message: The error message.
//	originalErr: The original error to wrap (may be nil).
//	isRetryable: Whether the operation may be retried.
//
// Returns:
//
//	A new BatchError instance.
func NewBatchError(module, message string, originalErr error, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// A trailing error argument becomes OriginalErr and is removed from the format arguments;
// a bool directly before it (or last, when there is no error) sets isRetryable.
//
// Examples:
//
//	NewBatchErrorf("store", "task %d not found", 10)
//	NewBatchErrorf("queue", "dequeue failed", true, err)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether the failed operation may be retried.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsTemporary determines if an error is temporary (network error, connection loss).
// A BatchError anywhere in the chain decides via its retryable flag.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		if be.IsRetryable() {
			return true
		}
		if be.OriginalErr == nil {
			return false
		}
		return IsTemporary(be.OriginalErr)
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// ExtractErrorMessage extracts a human readable message from an error.
// For BatchError it returns the Message field, otherwise err.Error().
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
