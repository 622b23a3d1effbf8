package macro

import (
	"fmt"
	"strconv"
)

// Payload is the kind-specific data of an Event. The set of implementations
// is closed: MousePayload, KeyPayload and CharPayload.
type Payload interface {
	payload()
}

// MousePayload is carried by every mouse kind. WheelDelta is zero for
// anything but MouseWheel.
type MousePayload struct {
	Button     Button
	Clicks     int32
	X          int32
	Y          int32
	WheelDelta int32
}

// KeyPayload is carried by KeyDown and KeyUp. The key code is platform
// specific and opaque to this package.
type KeyPayload struct {
	KeyCode int32
}

// CharPayload is carried by KeyChar.
type CharPayload struct {
	Char rune
}

func (MousePayload) payload() {}
func (KeyPayload) payload()   {}
func (CharPayload) payload()  {}

// Event is one captured input action plus the milliseconds elapsed since
// the previous event of the same log.
type Event struct {
	Kind    Kind
	Payload Payload
	DelayMs int32
}

// NewEvent builds a validated event.
func NewEvent(kind Kind, payload Payload, delayMs int32) (Event, error) {
	e := Event{Kind: kind, Payload: payload, DelayMs: delayMs}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Mouse is a shorthand for building mouse events.
func Mouse(kind Kind, button Button, x, y int32, delayMs int32) Event {
	return Event{Kind: kind, Payload: MousePayload{Button: button, X: x, Y: y}, DelayMs: delayMs}
}

// Key is a shorthand for building KeyDown and KeyUp events.
func Key(kind Kind, keyCode int32, delayMs int32) Event {
	return Event{Kind: kind, Payload: KeyPayload{KeyCode: keyCode}, DelayMs: delayMs}
}

// Char is a shorthand for building KeyChar events.
func Char(ch rune, delayMs int32) Event {
	return Event{Kind: KeyChar, Payload: CharPayload{Char: ch}, DelayMs: delayMs}
}

// Validate checks that the payload shape matches the kind.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint16(e.Kind))
	}
	if e.DelayMs < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDelay, e.DelayMs)
	}

	var ok bool
	switch {
	case e.Kind.IsMouse():
		var p MousePayload
		p, ok = e.Payload.(MousePayload)
		if ok && !p.Button.Valid() {
			return fmt.Errorf("%w: unknown button %d", ErrPayloadMismatch, uint32(p.Button))
		}
	case e.Kind.IsKey():
		_, ok = e.Payload.(KeyPayload)
	case e.Kind == KeyChar:
		_, ok = e.Payload.(CharPayload)
	}
	if !ok {
		return fmt.Errorf("%w: %s with %T", ErrPayloadMismatch, e.Kind, e.Payload)
	}
	return nil
}

// WithDelay returns a copy of e with a different delay.
func (e Event) WithDelay(delayMs int32) Event {
	e.DelayMs = delayMs
	return e
}

// HoldKey returns the identity used to track a held key or button, or ""
// for kinds that never hold anything.
func (e Event) HoldKey() string {
	switch p := e.Payload.(type) {
	case MousePayload:
		return "mouse:" + p.Button.String()
	case KeyPayload:
		return "key:" + strconv.Itoa(int(p.KeyCode))
	default:
		return ""
	}
}

func (e Event) String() string {
	switch p := e.Payload.(type) {
	case MousePayload:
		if e.Kind == MouseWheel {
			return fmt.Sprintf("%s(%d,%d wheel=%d) +%dms", e.Kind, p.X, p.Y, p.WheelDelta, e.DelayMs)
		}
		if p.Button != ButtonNone {
			return fmt.Sprintf("%s(%s %d,%d) +%dms", e.Kind, p.Button, p.X, p.Y, e.DelayMs)
		}
		return fmt.Sprintf("%s(%d,%d) +%dms", e.Kind, p.X, p.Y, e.DelayMs)
	case KeyPayload:
		return fmt.Sprintf("%s(0x%X) +%dms", e.Kind, p.KeyCode, e.DelayMs)
	case CharPayload:
		return fmt.Sprintf("%s(%q) +%dms", e.Kind, p.Char, e.DelayMs)
	default:
		return fmt.Sprintf("%s +%dms", e.Kind, e.DelayMs)
	}
}
