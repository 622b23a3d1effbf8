package hotkey

import "fmt"

// Virtual-key names. Modifiers collapse left and right variants.
var keyNames = map[int32]string{
	0x11: "CTRL", 0xA2: "CTRL", 0xA3: "CTRL",
	0x12: "ALT", 0xA4: "ALT", 0xA5: "ALT",
	0x10: "SHIFT", 0xA0: "SHIFT", 0xA1: "SHIFT",
	0x5B: "CMD", 0x5C: "CMD", // Windows key as CMD for consistency
	0x20: "SPACE",
	0x0D: "ENTER",
	0x1B: "ESC",
	0x08: "BACKSPACE",
	0x09: "TAB",
	0x14: "CAPSLOCK",
	0x21: "PAGEUP",
	0x22: "PAGEDOWN",
	0x23: "END",
	0x24: "HOME",
	0x25: "LEFT",
	0x26: "UP",
	0x27: "RIGHT",
	0x28: "DOWN",
	0x2C: "PRINTSCREEN",
	0x2D: "INSERT",
	0x2E: "DELETE",
	0x13: "PAUSE",
	0x91: "SCROLLLOCK",
}

// KeyName returns the hotkey name of a virtual-key code, or "" if it has none.
func KeyName(vk int32) string {
	if name, ok := keyNames[vk]; ok {
		return name
	}

	// Letters A-Z
	if vk >= 0x41 && vk <= 0x5A {
		return string(rune(vk))
	}

	// Numbers 0-9
	if vk >= 0x30 && vk <= 0x39 {
		return string(rune(vk))
	}

	// F1-F24
	if vk >= 0x70 && vk <= 0x87 {
		return fmt.Sprintf("F%d", vk-0x6F)
	}

	return ""
}

// codeForName returns the canonical virtual-key code of a name. Modifiers
// map to their generic code.
func codeForName(name string) (int32, bool) {
	switch name {
	case "CTRL":
		return 0x11, true
	case "ALT":
		return 0x12, true
	case "SHIFT":
		return 0x10, true
	case "CMD":
		return 0x5B, true
	}
	for vk := int32(0x08); vk <= 0xA5; vk++ {
		if KeyName(vk) == name {
			return vk, true
		}
	}
	return 0, false
}
