package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches every header mismatch (wrong name or wrong version)
	ErrFormat = errors.New("not a recorded action file")

	// ErrUnknownFormat is returned when the format name is not RecordedAction
	ErrUnknownFormat = &formatError{msg: "unknown format name"}

	// ErrUnsupportedVersion is returned for any version other than FormatVersion
	ErrUnsupportedVersion = &formatError{msg: "unsupported format version"}

	// ErrTruncated is returned when the input ends before a field is complete
	ErrTruncated = errors.New("unexpected end of data")

	// ErrUnknownEventKind is returned for a kind tag outside the known set
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrUnknownButton is returned for a mouse button outside the known set
	ErrUnknownButton = errors.New("unknown mouse button")

	// ErrNegativeCount is returned when the event count is below zero
	ErrNegativeCount = errors.New("negative event count")

	// ErrNegativeDelay is returned when an event delay is below zero
	ErrNegativeDelay = errors.New("negative event delay")

	// ErrTrailingData is returned when bytes follow the last event
	ErrTrailingData = errors.New("trailing data after events")

	// ErrInvalidEvent is returned by Encode for events that violate the model
	ErrInvalidEvent = errors.New("invalid event")
)

type formatError struct {
	msg string
}

func (e *formatError) Error() string {
	return e.msg
}

func (e *formatError) Is(target error) bool {
	return target == ErrFormat
}

// DecodeError locates a decode failure within the input.
type DecodeError struct {
	Offset int
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
