// Package errors provides the error types shared by the download pipeline.
// It lives apart from the pipeline packages so that download, matcher and
// syncer can all classify failures without importing each other.
package errors

import (
	"errors"
	"fmt"
)

// NonRetryableError represents an error that should not be retried.
// A download attempt that fails with this error type goes straight to the
// failed state without consuming the remaining retries.
type NonRetryableError struct {
	message string
	cause   error
}

// Error implements the error interface.
func (e *NonRetryableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *NonRetryableError) Unwrap() error {
	return e.cause
}

// Is checks if the target error is a NonRetryableError.
func (e *NonRetryableError) Is(target error) bool {
	_, ok := target.(*NonRetryableError)
	return ok
}

// NewNonRetryableError creates a new non-retryable error with a message and optional cause.
func NewNonRetryableError(message string, cause error) error {
	return &NonRetryableError{
		message: message,
		cause:   cause,
	}
}

// WrapNonRetryable wraps an existing error as non-retryable.
func WrapNonRetryable(cause error) error {
	if cause == nil {
		return nil
	}
	return &NonRetryableError{
		message: "operation failed with non-retryable error",
		cause:   cause,
	}
}

// IsNonRetryable checks if an error is non-retryable.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var nonRetryableErr *NonRetryableError
	return errors.As(err, &nonRetryableErr)
}

// Kind tells the orchestrator what a per-file failure means for that file.
// Every kind lets the run move on to the next file.
type Kind string

const (
	// KindNone is reported for a nil error.
	KindNone Kind = ""
	// KindSkip covers expected, recoverable conditions: the inventory is
	// missing, empty or malformed, or nothing was selected.
	KindSkip Kind = "skip"
	// KindHardStop covers conditions where the byte-range plan cannot be
	// trusted: ambiguous patterns, strict-mode missing fields, unparseable
	// timing on a selected message.
	KindHardStop Kind = "hard_stop"
	// KindFailed is a download that exhausted its retries.
	KindFailed Kind = "failed"
)

// KindError attaches a Kind to an error.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// WithKind wraps err with the given kind. A nil error stays nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// Skip marks err as a recoverable per-file condition.
func Skip(err error) error { return WithKind(KindSkip, err) }

// HardStop marks err as fatal for the current file.
func HardStop(err error) error { return WithKind(KindHardStop, err) }

// Failed marks err as a terminal download failure.
func Failed(err error) error { return WithKind(KindFailed, err) }

// Classify returns the kind attached to err. Unclassified errors are
// reported as KindFailed.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindFailed
}
