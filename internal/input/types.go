// Package input provides global input capture and injection.
package input

import (
	"errors"
	"time"

	"actionrecorder/internal/macro"
)

var (
	// ErrUnsupportedPlatform is returned by the hook and injector on platforms
	// without a native backend
	ErrUnsupportedPlatform = errors.New("input capture and injection not supported on this platform")

	// ErrTransient is returned when a single injection fails but later ones may succeed
	ErrTransient = errors.New("input injection failed")

	// ErrHookRunning is returned when starting a hook twice
	ErrHookRunning = errors.New("hook already running")
)

// Event is one raw action observed by a Hook.
type Event struct {
	Kind    macro.Kind
	Payload macro.Payload
	Time    time.Time

	// Injected is set for actions synthesized by an injector, including ours.
	Injected bool
}

// Hook delivers global keyboard and mouse events.
type Hook interface {
	Start() error
	Stop() error
	Events() <-chan Event
}

// Injector synthesizes one input action.
type Injector interface {
	Inject(kind macro.Kind, payload macro.Payload) error
}

// Mouse button flag pairs for SendInput-style APIs.
const (
	mouseLeftDown   = 0x0002
	mouseLeftUp     = 0x0004
	mouseRightDown  = 0x0008
	mouseRightUp    = 0x0010
	mouseMiddleDown = 0x0020
	mouseMiddleUp   = 0x0040
	mouseXDown      = 0x0080
	mouseXUp        = 0x0100
	mouseWheel      = 0x0800

	xButton1 = 0x0001
	xButton2 = 0x0002
)

// buttonFlags returns the event flags and mouse data for pressing or
// releasing a button.
func buttonFlags(b macro.Button, down bool) (flags, data uint32, err error) {
	pick := func(d, u uint32) uint32 {
		if down {
			return d
		}
		return u
	}
	switch b {
	case macro.ButtonLeft:
		return pick(mouseLeftDown, mouseLeftUp), 0, nil
	case macro.ButtonRight:
		return pick(mouseRightDown, mouseRightUp), 0, nil
	case macro.ButtonMiddle:
		return pick(mouseMiddleDown, mouseMiddleUp), 0, nil
	case macro.ButtonX1:
		return pick(mouseXDown, mouseXUp), xButton1, nil
	case macro.ButtonX2:
		return pick(mouseXDown, mouseXUp), xButton2, nil
	default:
		return 0, 0, errors.New("no button to press")
	}
}

// step is one primitive action an event expands into.
type step struct {
	move  bool
	flags uint32
	data  uint32
	x, y  int32
}

// expand turns a mouse event into the primitive cursor moves and button
// transitions needed to reproduce it.
func expand(kind macro.Kind, p macro.MousePayload) ([]step, error) {
	moveTo := step{move: true, x: p.X, y: p.Y}
	press := func(down bool) (step, error) {
		flags, data, err := buttonFlags(p.Button, down)
		return step{flags: flags, data: data}, err
	}

	switch kind {
	case macro.MouseMove:
		return []step{moveTo}, nil
	case macro.MouseWheel:
		return []step{moveTo, {flags: mouseWheel, data: uint32(p.WheelDelta)}}, nil
	case macro.MouseDown, macro.MouseDragStart:
		down, err := press(true)
		return []step{moveTo, down}, err
	case macro.MouseUp, macro.MouseDragEnd:
		up, err := press(false)
		return []step{moveTo, up}, err
	case macro.MouseClick, macro.MouseDoubleClick:
		down, err := press(true)
		if err != nil {
			return nil, err
		}
		up, _ := press(false)
		steps := []step{moveTo, down, up}
		if kind == macro.MouseDoubleClick {
			steps = append(steps, down, up)
		}
		return steps, nil
	}
	return nil, macro.ErrUnknownKind
}
