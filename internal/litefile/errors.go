package litefile

import (
	"fmt"
)

var (
	// ErrEmptyDB is returned when a page is requested from a zero-byte stream.
	ErrEmptyDB = fmt.Errorf("database is empty")
	// ErrInvalidPageNumber is returned for page 0 and for pages past the end of the stream.
	ErrInvalidPageNumber = fmt.Errorf("invalid page number")
)

// PayloadTooSmallError means fewer bytes were available than a fixed-length field needs.
type PayloadTooSmallError struct {
	Field  FieldName
	Want   int
	Actual int
}

func (e *PayloadTooSmallError) Error() string {
	return fmt.Sprintf("payload too small for %s: need %d bytes, got %d", e.Field, e.Want, e.Actual)
}

// FieldParsingError means the bytes of a field were present but outside of its value domain.
type FieldParsingError struct {
	Field  FieldName
	Reason string
}

func (e *FieldParsingError) Error() string {
	return fmt.Sprintf("error parsing %s: %s", e.Field, e.Reason)
}

// HeaderValidationError means every field decoded but a cross-field invariant does not hold.
type HeaderValidationError struct {
	Reason string
}

func (e *HeaderValidationError) Error() string {
	return fmt.Sprintf("header validation failed: %s", e.Reason)
}

// IOError wraps a failed seek or read against the underlying stream.
type IOError struct {
	Op         string
	PageNumber PageNumber
	Err        error
}

func (e *IOError) Error() string {
	if e.PageNumber == 0 {
		return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("io error during %s of page %d: %v", e.Op, e.PageNumber, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func fieldError(field FieldName, format string, args ...any) error {
	return &FieldParsingError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func invalidPageNumber(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPageNumber, fmt.Sprintf(format, args...))
}
