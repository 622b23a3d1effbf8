// Package capture turns hook events into a macro log.
package capture

import (
	"math"
	"sync"
	"time"

	"actionrecorder/internal/input"
	"actionrecorder/internal/macro"
)

// Sink appends hook events to one open log, deriving each delay from the
// time elapsed since the previous accepted event.
type Sink struct {
	mu     sync.Mutex
	log    *macro.Log
	last   time.Time
	ignore func(input.Event) bool
	now    func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithIgnore drops events for which fn returns true, such as the keys that
// control recording itself.
func WithIgnore(fn func(input.Event) bool) Option {
	return func(s *Sink) { s.ignore = fn }
}

// WithClock sets the time source used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// NewSink creates a sink writing to log
func NewSink(log *macro.Log, opts ...Option) *Sink {
	s := &Sink{log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log returns the log being written
func (s *Sink) Log() *macro.Log {
	return s.log
}

// Handle records one event. Ignored events return nil and do not move the
// delay reference point. Once the log is frozen Handle returns
// macro.ErrLogFrozen.
func (s *Sink) Handle(e input.Event) error {
	if s.ignore != nil && s.ignore(e) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := e.Time
	if at.IsZero() {
		at = s.now()
	}

	var delay int32
	if !s.last.IsZero() {
		delay = delayMs(at.Sub(s.last))
	}

	ev, err := macro.NewEvent(e.Kind, e.Payload, delay)
	if err != nil {
		return err
	}
	if err := s.log.Append(ev); err != nil {
		return err
	}
	s.last = at
	return nil
}

func delayMs(d time.Duration) int32 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(ms)
}

// KeyFilter returns an ignore predicate matching KeyDown and KeyUp events
// for any of the given key codes.
func KeyFilter(codes ...int32) func(input.Event) bool {
	set := make(map[int32]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(e input.Event) bool {
		p, ok := e.Payload.(macro.KeyPayload)
		if !ok {
			return false
		}
		_, hit := set[p.KeyCode]
		return hit
	}
}
