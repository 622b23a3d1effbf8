package macro

import (
	"errors"
	"testing"
	"time"
)

// TestNewEventValidation tests that payload shapes are checked against kinds
func TestNewEventValidation(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		payload Payload
		delay   int32
		wantErr error
	}{
		{"mouse move", MouseMove, MousePayload{X: 1, Y: 2}, 0, nil},
		{"wheel", MouseWheel, MousePayload{WheelDelta: -120}, 5, nil},
		{"key down", KeyDown, KeyPayload{KeyCode: 0x41}, 0, nil},
		{"key char", KeyChar, CharPayload{Char: 'é'}, 3, nil},
		{"unknown kind", Kind(0), MousePayload{}, 0, ErrUnknownKind},
		{"kind out of range", Kind(12), KeyPayload{}, 0, ErrUnknownKind},
		{"mouse kind with key payload", MouseDown, KeyPayload{}, 0, ErrPayloadMismatch},
		{"key kind with char payload", KeyUp, CharPayload{}, 0, ErrPayloadMismatch},
		{"char kind with nil payload", KeyChar, nil, 0, ErrPayloadMismatch},
		{"unknown button", MouseDown, MousePayload{Button: 9}, 0, ErrPayloadMismatch},
		{"negative delay", MouseMove, MousePayload{}, -1, ErrNegativeDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvent(tt.kind, tt.payload, tt.delay)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestKindFamilies tests the kind classification helpers
func TestKindFamilies(t *testing.T) {
	for _, k := range []Kind{MouseMove, MouseDown, MouseUp, MouseWheel, MouseDragStart, MouseDragEnd, MouseClick, MouseDoubleClick} {
		if !k.IsMouse() || k.IsKey() {
			t.Errorf("Expected %s to be a mouse kind", k)
		}
	}
	if !KeyDown.IsKey() || !KeyUp.IsKey() || KeyChar.IsKey() {
		t.Error("Expected only KeyDown and KeyUp to be key kinds")
	}
	if !MouseDown.IsPress() || !KeyDown.IsPress() || MouseClick.IsPress() {
		t.Error("Unexpected press classification")
	}
	if !MouseUp.IsRelease() || !KeyUp.IsRelease() || MouseDragEnd.IsRelease() {
		t.Error("Unexpected release classification")
	}
}

// TestParseKind tests name lookups in both directions
func TestParseKind(t *testing.T) {
	for k := MouseMove; k <= KeyChar; k++ {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%s) failed: %v", k, err)
		}
		if got != k {
			t.Errorf("Expected %s, got %s", k, got)
		}
	}
	if _, err := ParseKind("Teleport"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

// TestHoldKey tests the identity used for held key tracking
func TestHoldKey(t *testing.T) {
	down := Mouse(MouseDown, ButtonLeft, 0, 0, 0)
	up := Mouse(MouseUp, ButtonLeft, 10, 10, 0)
	if down.HoldKey() != up.HoldKey() {
		t.Errorf("Expected matching hold keys, got %q and %q", down.HoldKey(), up.HoldKey())
	}
	if Key(KeyDown, 65, 0).HoldKey() != "key:65" {
		t.Errorf("Unexpected key hold key %q", Key(KeyDown, 65, 0).HoldKey())
	}
	if Char('a', 0).HoldKey() != "" {
		t.Error("Expected chars to have no hold key")
	}
}

// TestLogLifecycle tests append, freeze and snapshot isolation
func TestLogLifecycle(t *testing.T) {
	l := NewLog(time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC))

	if got := l.RecordedAt().Nanosecond(); got != 123000000 {
		t.Errorf("Expected millisecond precision, got %d ns", got)
	}

	if err := l.Append(Mouse(MouseMove, ButtonNone, 1, 1, 0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(Key(KeyDown, 65, 20)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(Event{Kind: KeyUp, Payload: MousePayload{}}); !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("Expected ErrPayloadMismatch, got %v", err)
	}

	snapshot := l.Events()
	snapshot[0] = Char('x', 0)
	if first, _ := l.Events()[0], 0; first.Kind != MouseMove {
		t.Error("Expected Events to return a copy")
	}

	if l.TotalDelay() != 20*time.Millisecond {
		t.Errorf("Expected total delay 20ms, got %v", l.TotalDelay())
	}

	l.Freeze()
	if !l.Frozen() {
		t.Error("Expected log to be frozen")
	}
	if err := l.Append(Key(KeyUp, 65, 5)); !errors.Is(err, ErrLogFrozen) {
		t.Errorf("Expected ErrLogFrozen, got %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("Expected 2 events, got %d", l.Len())
	}
	last, ok := l.Last()
	if !ok || last.Kind != KeyDown {
		t.Errorf("Expected last event KeyDown, got %v", last)
	}
}

// TestLogEqual tests structural log comparison
func TestLogEqual(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	events := []Event{Mouse(MouseDown, ButtonRight, 3, 4, 0), Char('q', 7)}

	a, err := NewFrozenLog(at, events)
	if err != nil {
		t.Fatalf("NewFrozenLog failed: %v", err)
	}
	b, _ := NewFrozenLog(at.UTC(), events)
	if !a.Equal(b) {
		t.Error("Expected logs with the same instant and events to be equal")
	}

	c, _ := NewFrozenLog(at, []Event{Mouse(MouseDown, ButtonRight, 3, 4, 0), Char('q', 8)})
	if a.Equal(c) {
		t.Error("Expected logs with different delays to differ")
	}

	if _, err := NewFrozenLog(at, []Event{{Kind: 99}}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}
