package capture

import (
	"errors"
	"math"
	"testing"
	"time"

	"actionrecorder/internal/input"
	"actionrecorder/internal/macro"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func keyAt(kind macro.Kind, code int32, offset time.Duration) input.Event {
	return input.Event{Kind: kind, Payload: macro.KeyPayload{KeyCode: code}, Time: base.Add(offset)}
}

// TestDelays tests that delays are derived from hook timestamps
func TestDelays(t *testing.T) {
	l := macro.NewLog(base)
	s := NewSink(l)

	inputs := []input.Event{
		keyAt(macro.KeyDown, 0x41, 500*time.Millisecond),
		keyAt(macro.KeyUp, 0x41, 620*time.Millisecond),
		{Kind: macro.MouseMove, Payload: macro.MousePayload{X: 3, Y: 4}, Time: base.Add(621900 * time.Microsecond)},
		keyAt(macro.KeyDown, 0x42, 600*time.Millisecond),
	}
	for _, e := range inputs {
		if err := s.Handle(e); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}

	want := []int32{0, 120, 1, 0}
	got := l.Events()
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i, d := range want {
		if got[i].DelayMs != d {
			t.Errorf("event %d: expected delay %d, got %d", i, d, got[i].DelayMs)
		}
	}
}

// TestDelaySaturates tests that very long pauses fit the delay field
func TestDelaySaturates(t *testing.T) {
	l := macro.NewLog(base)
	s := NewSink(l)

	_ = s.Handle(keyAt(macro.KeyDown, 1, 0))
	_ = s.Handle(keyAt(macro.KeyUp, 1, 30*24*time.Hour))

	last, _ := l.Last()
	if last.DelayMs != math.MaxInt32 {
		t.Errorf("Expected saturated delay, got %d", last.DelayMs)
	}
}

// TestIgnoreControlKeys tests that filtered keys leave no trace
func TestIgnoreControlKeys(t *testing.T) {
	l := macro.NewLog(base)
	s := NewSink(l, WithIgnore(KeyFilter(0x78, 0x79)))

	_ = s.Handle(keyAt(macro.KeyDown, 0x78, 0))
	_ = s.Handle(keyAt(macro.KeyUp, 0x78, 10*time.Millisecond))
	_ = s.Handle(keyAt(macro.KeyDown, 0x41, 40*time.Millisecond))
	_ = s.Handle(keyAt(macro.KeyDown, 0x79, 50*time.Millisecond))
	_ = s.Handle(keyAt(macro.KeyUp, 0x41, 70*time.Millisecond))

	got := l.Events()
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %v", got)
	}
	if got[0].DelayMs != 0 || got[1].DelayMs != 30 {
		t.Errorf("Unexpected delays %d and %d", got[0].DelayMs, got[1].DelayMs)
	}
}

// TestFrozenLog tests that a stopped recording rejects events
func TestFrozenLog(t *testing.T) {
	l := macro.NewLog(base)
	s := NewSink(l)
	l.Freeze()

	if err := s.Handle(keyAt(macro.KeyDown, 1, 0)); !errors.Is(err, macro.ErrLogFrozen) {
		t.Errorf("Expected ErrLogFrozen, got %v", err)
	}
}

// TestClockFallback tests events without a hook timestamp
func TestClockFallback(t *testing.T) {
	now := base
	l := macro.NewLog(base)
	s := NewSink(l, WithClock(func() time.Time { return now }))

	_ = s.Handle(input.Event{Kind: macro.KeyChar, Payload: macro.CharPayload{Char: 'a'}})
	now = now.Add(75 * time.Millisecond)
	_ = s.Handle(input.Event{Kind: macro.KeyChar, Payload: macro.CharPayload{Char: 'b'}})

	last, _ := l.Last()
	if last.DelayMs != 75 {
		t.Errorf("Expected delay 75, got %d", last.DelayMs)
	}
}
