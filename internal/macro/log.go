package macro

import (
	"fmt"
	"sync"
	"time"
)

// Log is an ordered, dated collection of events. A log is appended to while
// recording and frozen afterwards; imported logs are created frozen.
//
// Log is safe for concurrent use.
type Log struct {
	mu         sync.RWMutex
	recordedAt time.Time
	events     []Event
	frozen     bool
}

// NewLog creates an empty, open log stamped with recordedAt truncated to
// millisecond precision, which is what the file format stores.
func NewLog(recordedAt time.Time) *Log {
	return &Log{recordedAt: time.UnixMilli(recordedAt.UnixMilli())}
}

// NewFrozenLog creates a read-only log holding a copy of events.
func NewFrozenLog(recordedAt time.Time, events []Event) (*Log, error) {
	l := NewLog(recordedAt)
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	l.events = append(make([]Event, 0, len(events)), events...)
	l.frozen = true
	return l, nil
}

// RecordedAt returns when recording started.
func (l *Log) RecordedAt() time.Time {
	return l.recordedAt
}

// Append adds an event to the end of an open log.
func (l *Log) Append(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return ErrLogFrozen
	}
	l.events = append(l.events, e)
	return nil
}

// Freeze makes the log read-only. Calling it more than once is harmless.
func (l *Log) Freeze() {
	l.mu.Lock()
	l.frozen = true
	l.mu.Unlock()
}

// Frozen reports whether the log is read-only.
func (l *Log) Frozen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frozen
}

// Len returns the number of events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Last returns the most recent event.
func (l *Log) Last() (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// Events returns a copy of the events in order.
func (l *Log) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// TotalDelay returns the sum of all event delays.
func (l *Log) TotalDelay() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total time.Duration
	for _, e := range l.events {
		total += time.Duration(e.DelayMs) * time.Millisecond
	}
	return total
}

// Equal reports whether both logs hold the same timestamp and events.
func (l *Log) Equal(other *Log) bool {
	if l == nil || other == nil {
		return l == other
	}
	if !l.recordedAt.Equal(other.recordedAt) {
		return false
	}
	a, b := l.Events(), other.Events()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
