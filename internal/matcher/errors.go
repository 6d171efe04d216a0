package matcher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAmbiguousField is matched by every AmbiguousFieldError.
	ErrAmbiguousField = errors.New("matcher: ambiguous field")
	// ErrMissingRequiredFields is matched by every MissingFieldsError.
	ErrMissingRequiredFields = errors.New("matcher: missing required fields")
)

// AmbiguousFieldError is returned when a field pattern matches more than one
// inventory entry.
type AmbiguousFieldError struct {
	Field   string
	Pattern string
	Keys    []string
}

func (e *AmbiguousFieldError) Error() string {
	return fmt.Sprintf("matcher: field %s (%q) matches %d entries: %s",
		e.Field, e.Pattern, len(e.Keys), strings.Join(e.Keys, ", "))
}

func (e *AmbiguousFieldError) Is(target error) bool {
	return target == ErrAmbiguousField
}

// MissingFieldsError lists the fields that matched nothing in strict mode.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("matcher: fields not found in inventory: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingRequiredFields
}

// TimingError wraps a step descriptor error of a selected entry.
type TimingError struct {
	Field string
	Key   string
	Err   error
}

func (e *TimingError) Error() string {
	return fmt.Sprintf("matcher: field %s selected %q: %v", e.Field, e.Key, e.Err)
}

func (e *TimingError) Unwrap() error {
	return e.Err
}
