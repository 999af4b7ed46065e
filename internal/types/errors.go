package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for flowgrid errors.
type ErrorCode string

// Validation error codes
const (
	VALIDATION_FAILED        ErrorCode = "VALIDATION_FAILED"
	OUTPUT_VALIDATION_FAILED ErrorCode = "OUTPUT_VALIDATION_FAILED"
)

// Lookup error codes
const (
	NOT_FOUND ErrorCode = "NOT_FOUND"
)

// Invocation policy error codes
const (
	RATE_LIMIT_EXCEEDED ErrorCode = "RATE_LIMIT_EXCEEDED"
	APPROVAL_REQUIRED   ErrorCode = "APPROVAL_REQUIRED"
	TIMEOUT             ErrorCode = "TIMEOUT"
	TRANSIENT           ErrorCode = "TRANSIENT"
)

// Sandbox error codes
const (
	SANDBOX_FAULT ErrorCode = "SANDBOX_FAULT"
)

// FlowError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type FlowError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *FlowError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a FlowError with the same Code.
func (e *FlowError) Is(target error) bool {
	var flowErr *FlowError
	if errors.As(target, &flowErr) {
		return e.Code == flowErr.Code
	}
	return false
}

// NewError creates a new non-retryable FlowError with the given code and message.
func NewError(code ErrorCode, message string) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable FlowError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *FlowError {
	return &FlowError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable FlowError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns an empty code if the chain contains no FlowError.
func CodeOf(err error) ErrorCode {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Code
	}
	return ""
}

// IsRetryable reports whether any FlowError in the chain is marked retryable.
func IsRetryable(err error) bool {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Retryable
	}
	return false
}
