// Package transform rewrites event sequences before playback.
package transform

import (
	"errors"
	"fmt"
	"math"

	"actionrecorder/internal/macro"
)

// ErrInvalidTiming is returned for a non-positive multiplier, a negative
// fixed delay or an unknown mode.
var ErrInvalidTiming = errors.New("invalid timing")

// Mode selects how delays are rewritten.
type Mode int

const (
	Original Mode = iota
	Multiplier
	Fixed
)

func (m Mode) String() string {
	switch m {
	case Original:
		return "original"
	case Multiplier:
		return "multiplier"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode returns the mode with the given name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "original":
		return Original, nil
	case "multiplier":
		return Multiplier, nil
	case "fixed":
		return Fixed, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidTiming, s)
}

// Timing rewrites delays. Only the field belonging to Mode is read, so
// multiplier and fixed timing can never be active together.
type Timing struct {
	Mode       Mode
	Multiplier float64
	FixedMs    int32
}

// Validate checks the field used by the mode.
func (t Timing) Validate() error {
	switch t.Mode {
	case Original:
		return nil
	case Multiplier:
		if !(t.Multiplier > 0) || math.IsInf(t.Multiplier, 0) {
			return fmt.Errorf("%w: multiplier must be positive and finite, got %v", ErrInvalidTiming, t.Multiplier)
		}
		return nil
	case Fixed:
		if t.FixedMs < 0 {
			return fmt.Errorf("%w: fixed delay must not be negative, got %d", ErrInvalidTiming, t.FixedMs)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown mode %d", ErrInvalidTiming, int(t.Mode))
}

// Delay returns the rewritten delay of one event.
func (t Timing) Delay(ms int32) int32 {
	switch t.Mode {
	case Multiplier:
		scaled := math.Round(float64(ms) * t.Multiplier)
		if scaled >= math.MaxInt32 {
			return math.MaxInt32
		}
		if scaled < 0 {
			return 0
		}
		return int32(scaled)
	case Fixed:
		return t.FixedMs
	default:
		return ms
	}
}

// Options is the complete transform configuration.
type Options struct {
	SuppressMouseMovePath bool
	Timing                Timing
}

// Apply runs suppression, when enabled, and then timing. The input slice is
// never modified.
func Apply(events []macro.Event, opts Options) ([]macro.Event, error) {
	if err := opts.Timing.Validate(); err != nil {
		return nil, err
	}

	var out []macro.Event
	if opts.SuppressMouseMovePath {
		out = SuppressMouseMovePath(events)
	} else {
		out = append(make([]macro.Event, 0, len(events)), events...)
	}

	if opts.Timing.Mode != Original {
		for i := range out {
			out[i].DelayMs = opts.Timing.Delay(out[i].DelayMs)
		}
	}
	return out, nil
}

// SuppressMouseMovePath drops every MouseMove that is followed by another
// MouseMove while no key or mouse button is held, keeping only the final
// position of each free cursor path. Moves during a drag are preserved.
//
// The held set is updated by each event before its own keep decision, and
// adjacency is judged on the original sequence.
func SuppressMouseMovePath(events []macro.Event) []macro.Event {
	out := make([]macro.Event, 0, len(events))
	held := make(map[string]struct{})

	for i, e := range events {
		switch {
		case e.Kind.IsPress():
			held[e.HoldKey()] = struct{}{}
		case e.Kind.IsRelease():
			delete(held, e.HoldKey())
		}

		if e.Kind == macro.MouseMove && len(held) == 0 &&
			i+1 < len(events) && events[i+1].Kind == macro.MouseMove {
			continue
		}
		out = append(out, e)
	}
	return out
}
