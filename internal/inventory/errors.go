package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInventory is returned when an inventory has no records.
	ErrEmptyInventory = errors.New("inventory: empty inventory")
	// ErrMalformedLine is matched by every MalformedLineError.
	ErrMalformedLine = errors.New("inventory: malformed line")
	// ErrUnsupportedUnit is matched by every UnsupportedUnitError.
	ErrUnsupportedUnit = errors.New("inventory: unsupported step unit")
	// ErrUnrecognizedStepDescriptor is matched by every UnrecognizedStepError.
	ErrUnrecognizedStepDescriptor = errors.New("inventory: unrecognized step descriptor")
)

// MalformedLineError reports the first inventory line that does not have the
// expected shape. The whole inventory is rejected.
type MalformedLineError struct {
	Line int
	Text string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("inventory: malformed line %d: %q", e.Line, e.Text)
}

func (e *MalformedLineError) Is(target error) bool {
	return target == ErrMalformedLine
}

// UnsupportedUnitError is returned for step descriptors whose unit is not "hour".
type UnsupportedUnitError struct {
	Descriptor string
	Unit       string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("inventory: unsupported unit %q in step %q", e.Unit, e.Descriptor)
}

func (e *UnsupportedUnitError) Is(target error) bool {
	return target == ErrUnsupportedUnit
}

// UnrecognizedStepError is returned for step descriptors that are neither a
// range nor an instant, e.g. "anl".
type UnrecognizedStepError struct {
	Descriptor string
}

func (e *UnrecognizedStepError) Error() string {
	return fmt.Sprintf("inventory: don't know how to deal with step %q", e.Descriptor)
}

func (e *UnrecognizedStepError) Is(target error) bool {
	return target == ErrUnrecognizedStepDescriptor
}
