package macro

import "errors"

var (
	// ErrUnknownKind is returned for a kind outside the closed enumeration
	ErrUnknownKind = errors.New("unknown event kind")

	// ErrPayloadMismatch is returned when a payload shape does not match its kind
	ErrPayloadMismatch = errors.New("payload does not match event kind")

	// ErrNegativeDelay is returned for events with a delay below zero
	ErrNegativeDelay = errors.New("event delay must not be negative")

	// ErrLogFrozen is returned when appending to a log after recording stopped
	ErrLogFrozen = errors.New("log is read-only")
)
