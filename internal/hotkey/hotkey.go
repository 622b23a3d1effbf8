// Package hotkey matches global shortcuts against the live input stream.
package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"actionrecorder/internal/input"
	"actionrecorder/internal/macro"
)

// Manager handles global hotkey and mouse button registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys/buttons pressed
	async        bool
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "F9"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager. Callbacks run on their own
// goroutine so they never stall the input stream.
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		async:        true,
	}
}

// Register registers a hotkey string (e.g. "F9", "Ctrl+Alt+R", "Mouse4") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if hotkeyStr == "" {
		return 0, nil
	}

	parts := splitHotkey(hotkeyStr)
	for _, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("hotkey %q: empty key", hotkeyStr)
		}
		if _, ok := codeForName(p); !ok && !isModifier(p) && !strings.HasPrefix(p, "MOUSE") {
			return 0, fmt.Errorf("hotkey %q: unknown key %q", hotkeyStr, p)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// SetAsync controls whether callbacks run on their own goroutine
func (m *Manager) SetAsync(async bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.async = async
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// HandleEvent feeds one hook event into the key state. Injected events are
// ignored so playback can never trigger a shortcut.
func (m *Manager) HandleEvent(e input.Event) {
	if e.Injected {
		return
	}
	switch p := e.Payload.(type) {
	case macro.KeyPayload:
		if name := KeyName(p.KeyCode); name != "" {
			m.UpdateState(name, e.Kind == macro.KeyDown)
		}
	case macro.MousePayload:
		if !e.Kind.IsPress() && !e.Kind.IsRelease() {
			return
		}
		if name := buttonName(p.Button); name != "" {
			m.UpdateState(name, e.Kind.IsPress())
		}
	}
}

// UpdateState updates the internal state of a key or button and checks for
// matches. Auto-repeated key downs do not fire again.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !wasDown {
		m.checkMatches(key)
	}
}

func (m *Manager) checkMatches(trigger string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := true
		involved := false
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
			if part == trigger {
				involved = true
			}
		}

		if match && involved {
			log.Printf("Hotkey triggered: %s", hk.original)
			if m.async {
				go hk.callback()
			} else {
				hk.callback()
			}
		}
	}
}

// Codes returns the key codes of the non-modifier keys of a hotkey string,
// which are the keys a recording must leave out.
func Codes(hotkeyStr string) []int32 {
	var codes []int32
	for _, p := range splitHotkey(hotkeyStr) {
		if isModifier(p) {
			continue
		}
		if code, ok := codeForName(p); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

func splitHotkey(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.ToUpper(s), "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isModifier(name string) bool {
	switch name {
	case "CTRL", "ALT", "SHIFT", "CMD":
		return true
	}
	return false
}

func buttonName(b macro.Button) string {
	switch b {
	case macro.ButtonLeft:
		return "MOUSE1"
	case macro.ButtonMiddle:
		return "MOUSE2"
	case macro.ButtonRight:
		return "MOUSE3"
	case macro.ButtonX1:
		return "MOUSE4"
	case macro.ButtonX2:
		return "MOUSE5"
	}
	return ""
}
