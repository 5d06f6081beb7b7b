// Package task defines the invoker abstraction the engine uses to run
// external capabilities, the classified error taxonomy retry and catch
// rules match against, and a registry-backed local invoker.
package task

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass names a failure category. Retry and catch rules match
// invocation failures by class.
type ErrorClass string

// Built-in error classes. Handlers may return their own classes; the
// wildcard matches all of them.
const (
	// ErrorClassAll is the wildcard class matched by catch-all rules.
	ErrorClassAll ErrorClass = "*"

	// ErrorClassTransient marks service-unavailable style failures
	// that default retry rules target.
	ErrorClassTransient ErrorClass = "ServiceUnavailable"

	// ErrorClassTimeout marks invocations cancelled by a deadline.
	ErrorClassTimeout ErrorClass = "Timeout"

	// ErrorClassNotRegistered marks invocations of unknown task names.
	ErrorClassNotRegistered ErrorClass = "TaskNotRegistered"

	// ErrorClassTaskFailed is the catch-all class for unclassified
	// handler failures.
	ErrorClassTaskFailed ErrorClass = "TaskFailed"
)

// Error is a classified invocation failure.
type Error struct {
	Class   ErrorClass
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// NewError constructs a classified error.
func NewError(class ErrorClass, message string) *Error {
	return &Error{Class: class, Message: message}
}

// Transientf constructs a ServiceUnavailable error.
func Transientf(format string, args ...any) *Error {
	return &Error{Class: ErrorClassTransient, Message: fmt.Sprintf(format, args...)}
}

// Failedf constructs a TaskFailed error.
func Failedf(format string, args ...any) *Error {
	return &Error{Class: ErrorClassTaskFailed, Message: fmt.Sprintf(format, args...)}
}

// ClassOf classifies an arbitrary invocation error. Classified errors
// keep their class; context deadline failures become Timeout; everything
// else falls into the TaskFailed catch-all.
func ClassOf(err error) ErrorClass {
	var te *Error
	if errors.As(err, &te) {
		return te.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	return ErrorClassTaskFailed
}

// CauseOf extracts the human-readable cause of an invocation error.
// For classified errors this is the bare message without the class
// prefix; otherwise the error text itself.
func CauseOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}
