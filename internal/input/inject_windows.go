//go:build windows

package input

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"actionrecorder/internal/macro"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyEventKeyUp   = 0x0002
	keyEventUnicode = 0x0004
)

type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// sendInputRecord mirrors INPUT. The union is sized by its largest member,
// MOUSEINPUT, so keyboard records are written through a cast of Mi.
type sendInputRecord struct {
	Type uint32
	Mi   mouseInput
}

func keyboardRecord(vk, scan uint16, flags uint32) sendInputRecord {
	rec := sendInputRecord{Type: inputKeyboard}
	ki := (*keybdInput)(unsafe.Pointer(&rec.Mi))
	ki.Vk, ki.Scan, ki.Flags = vk, scan, flags
	return rec
}

// WindowsInjector replays actions with SetCursorPos and SendInput.
type WindowsInjector struct{}

// NewInjector creates the platform injector
func NewInjector() Injector {
	return &WindowsInjector{}
}

// Inject performs one action. Failures are reported as ErrTransient because
// the usual cause is a foreground window that refuses synthesized input.
func (w *WindowsInjector) Inject(kind macro.Kind, payload macro.Payload) error {
	switch p := payload.(type) {
	case macro.MousePayload:
		steps, err := expand(kind, p)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransient, kind, err)
		}
		for _, s := range steps {
			if s.move {
				if ret, _, callErr := procSetCursorPos.Call(uintptr(s.x), uintptr(s.y)); ret == 0 {
					return fmt.Errorf("%w: SetCursorPos(%d,%d): %v", ErrTransient, s.x, s.y, callErr)
				}
				continue
			}
			rec := sendInputRecord{Type: inputMouse, Mi: mouseInput{MouseData: s.data, Flags: s.flags}}
			if err := send([]sendInputRecord{rec}); err != nil {
				return err
			}
		}
		return nil

	case macro.KeyPayload:
		var flags uint32
		if kind == macro.KeyUp {
			flags = keyEventKeyUp
		}
		return send([]sendInputRecord{keyboardRecord(uint16(p.KeyCode), 0, flags)})

	case macro.CharPayload:
		units := utf16.Encode([]rune{p.Char})
		recs := make([]sendInputRecord, 0, 2*len(units))
		for _, u := range units {
			recs = append(recs, keyboardRecord(0, u, keyEventUnicode))
		}
		for _, u := range units {
			recs = append(recs, keyboardRecord(0, u, keyEventUnicode|keyEventKeyUp))
		}
		return send(recs)
	}
	return fmt.Errorf("%w: unsupported payload %T", ErrTransient, payload)
}

func send(recs []sendInputRecord) error {
	n, _, err := procSendInput.Call(
		uintptr(len(recs)),
		uintptr(unsafe.Pointer(&recs[0])),
		unsafe.Sizeof(recs[0]),
	)
	if int(n) != len(recs) {
		return fmt.Errorf("%w: SendInput sent %d of %d: %v", ErrTransient, n, len(recs), err)
	}
	return nil
}
