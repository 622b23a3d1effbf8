//go:build windows

package input

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"actionrecorder/internal/macro"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procSendInput           = user32.NewProc("SendInput")
	procSetCursorPos        = user32.NewProc("SetCursorPos")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	llmhfInjected = 0x00000001
	llkhfInjected = 0x00000010
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msllHookStruct struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    windows.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// Low-level hook callbacks carry no context pointer, so one hook instance
// is active per process.
var (
	activeMu   sync.Mutex
	activeHook *WindowsHook
)

// WindowsHook captures global input with WH_MOUSE_LL and WH_KEYBOARD_LL.
type WindowsHook struct {
	mu       sync.Mutex
	events   chan Event
	running  bool
	threadID uint32
	done     chan struct{}
	keyHook  uintptr
	mseHook  uintptr
}

// NewHook creates the platform hook
func NewHook() Hook {
	return &WindowsHook{}
}

// Start installs the hooks on a dedicated OS thread running a message loop.
func (h *WindowsHook) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrHookRunning
	}

	activeMu.Lock()
	if activeHook != nil {
		activeMu.Unlock()
		return ErrHookRunning
	}
	activeHook = h
	activeMu.Unlock()

	h.events = make(chan Event, 1024)
	h.done = make(chan struct{})
	started := make(chan error, 1)

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(h.done)

		h.threadID = windows.GetCurrentThreadId()
		hMod, _, _ := procGetModuleHandle.Call(0)

		var err error
		h.keyHook, _, err = procSetWindowsHookEx.Call(whKeyboardLL, windows.NewCallback(keyboardProc), hMod, 0)
		if h.keyHook == 0 {
			started <- fmt.Errorf("set keyboard hook: %v", err)
			return
		}
		h.mseHook, _, err = procSetWindowsHookEx.Call(whMouseLL, windows.NewCallback(mouseProc), hMod, 0)
		if h.mseHook == 0 {
			procUnhookWindowsHookEx.Call(h.keyHook)
			started <- fmt.Errorf("set mouse hook: %v", err)
			return
		}
		started <- nil

		log.Println("Input Hook: global hooks started")

		var m msg
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
		}

		procUnhookWindowsHookEx.Call(h.keyHook)
		procUnhookWindowsHookEx.Call(h.mseHook)
		log.Println("Input Hook: global hooks removed")
	}()

	if err := <-started; err != nil {
		<-h.done
		activeMu.Lock()
		activeHook = nil
		activeMu.Unlock()
		return err
	}
	h.running = true
	return nil
}

// Stop quits the message loop, removes the hooks and closes Events.
func (h *WindowsHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}

	procPostThreadMessage.Call(uintptr(h.threadID), wmQuit, 0, 0)
	<-h.done

	activeMu.Lock()
	activeHook = nil
	activeMu.Unlock()

	h.running = false
	close(h.events)
	return nil
}

// Events returns the captured event channel
func (h *WindowsHook) Events() <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events
}

// emit never blocks the hook thread; a stalled consumer loses events.
func (h *WindowsHook) emit(e Event) {
	select {
	case h.events <- e:
	default:
		log.Printf("Input Hook: event channel full, dropping %s", e.Kind)
	}
}

func current() *WindowsHook {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeHook
}

func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := current()
	if nCode == 0 && h != nil {
		kbd := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		var kind macro.Kind
		switch wParam {
		case wmKeyDown, wmSysKeyDown:
			kind = macro.KeyDown
		case wmKeyUp, wmSysKeyUp:
			kind = macro.KeyUp
		}
		if kind != 0 {
			h.emit(Event{
				Kind:     kind,
				Payload:  macro.KeyPayload{KeyCode: int32(kbd.VkCode)},
				Time:     time.Now(),
				Injected: kbd.Flags&llkhfInjected != 0,
			})
		}
	}
	var hook uintptr
	if h != nil {
		hook = h.keyHook
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := current()
	if nCode == 0 && h != nil {
		ms := (*msllHookStruct)(unsafe.Pointer(lParam))
		p := macro.MousePayload{X: ms.Point.X, Y: ms.Point.Y}
		var kind macro.Kind

		switch wParam {
		case wmMouseMove:
			kind = macro.MouseMove
		case wmLButtonDown:
			kind, p.Button, p.Clicks = macro.MouseDown, macro.ButtonLeft, 1
		case wmLButtonUp:
			kind, p.Button, p.Clicks = macro.MouseUp, macro.ButtonLeft, 1
		case wmRButtonDown:
			kind, p.Button, p.Clicks = macro.MouseDown, macro.ButtonRight, 1
		case wmRButtonUp:
			kind, p.Button, p.Clicks = macro.MouseUp, macro.ButtonRight, 1
		case wmMButtonDown:
			kind, p.Button, p.Clicks = macro.MouseDown, macro.ButtonMiddle, 1
		case wmMButtonUp:
			kind, p.Button, p.Clicks = macro.MouseUp, macro.ButtonMiddle, 1
		case wmXButtonDown, wmXButtonUp:
			kind = macro.MouseDown
			if wParam == wmXButtonUp {
				kind = macro.MouseUp
			}
			p.Button, p.Clicks = macro.ButtonX1, 1
			if ms.MouseData>>16 == xButton2 {
				p.Button = macro.ButtonX2
			}
		case wmMouseWheel:
			kind = macro.MouseWheel
			p.WheelDelta = int32(int16(ms.MouseData >> 16))
		}

		if kind != 0 {
			h.emit(Event{
				Kind:     kind,
				Payload:  p,
				Time:     time.Now(),
				Injected: ms.Flags&llmhfInjected != 0,
			})
		}
	}
	var hook uintptr
	if h != nil {
		hook = h.mseHook
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}
