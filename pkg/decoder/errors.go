package decoder

import (
	"errors"
	"fmt"
)

// Common errors reported through DecodeError.
var (
	// ErrTruncatedRecord is returned when a record header or name extends
	// past the filled length of the buffer.
	ErrTruncatedRecord = errors.New("record exceeds filled buffer length")

	// ErrBadOffset is returned when a next-record offset points outside the
	// buffer or back into the current record.
	ErrBadOffset = errors.New("next record offset out of range")

	// ErrBadNameLength is returned when a UTF-16 name has an odd byte length.
	ErrBadNameLength = errors.New("invalid file name length")
)

// DecodeError describes where decoding of a buffer stopped.
type DecodeError struct {
	// Layout is the layout being decoded.
	Layout Layout

	// Offset is the byte offset of the malformed record.
	Offset int

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s record at offset %d: %v", e.Layout, e.Offset, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
