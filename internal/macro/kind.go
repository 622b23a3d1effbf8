// Package macro provides the in-memory model of a recorded input macro.
package macro

import "fmt"

// Kind identifies a capturable input action. The numeric values are the
// on-disk tags of the .ra format and must never be renumbered.
type Kind uint16

const (
	MouseMove        Kind = 1
	MouseDown        Kind = 2
	MouseUp          Kind = 3
	MouseWheel       Kind = 4
	MouseDragStart   Kind = 5
	MouseDragEnd     Kind = 6
	MouseClick       Kind = 7
	MouseDoubleClick Kind = 8
	KeyDown          Kind = 9
	KeyUp            Kind = 10
	KeyChar          Kind = 11
)

var kindNames = map[Kind]string{
	MouseMove:        "MouseMove",
	MouseDown:        "MouseDown",
	MouseUp:          "MouseUp",
	MouseWheel:       "MouseWheel",
	MouseDragStart:   "MouseDragStart",
	MouseDragEnd:     "MouseDragEnd",
	MouseClick:       "MouseClick",
	MouseDoubleClick: "MouseDoubleClick",
	KeyDown:          "KeyDown",
	KeyUp:            "KeyUp",
	KeyChar:          "KeyChar",
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsMouse reports whether k carries a MousePayload.
func (k Kind) IsMouse() bool {
	return k >= MouseMove && k <= MouseDoubleClick
}

// IsKey reports whether k carries a KeyPayload.
func (k Kind) IsKey() bool {
	return k == KeyDown || k == KeyUp
}

// IsPress reports whether k starts holding a key or mouse button.
func (k Kind) IsPress() bool {
	return k == MouseDown || k == KeyDown
}

// IsRelease reports whether k ends holding a key or mouse button.
func (k Kind) IsRelease() bool {
	return k == MouseUp || k == KeyUp
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Button identifies a mouse button.
type Button uint32

const (
	ButtonNone   Button = 0
	ButtonLeft   Button = 1
	ButtonRight  Button = 2
	ButtonMiddle Button = 3
	ButtonX1     Button = 4
	ButtonX2     Button = 5
)

// Valid reports whether b is one of the known buttons.
func (b Button) Valid() bool {
	return b <= ButtonX2
}

func (b Button) String() string {
	switch b {
	case ButtonNone:
		return "None"
	case ButtonLeft:
		return "Left"
	case ButtonRight:
		return "Right"
	case ButtonMiddle:
		return "Middle"
	case ButtonX1:
		return "X1"
	case ButtonX2:
		return "X2"
	default:
		return fmt.Sprintf("Button(%d)", uint32(b))
	}
}
