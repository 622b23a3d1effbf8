package tray

import (
	"encoding/binary"
	"testing"
)

// TestStateBeforeRun tests that updates before Run are kept for the menu
func TestStateBeforeRun(t *testing.T) {
	tr := New("ActionRecorder")
	rec := tr.AddMenuItem("Record (F9)", nil)
	tr.AddSeparator()
	loop := tr.AddCheckbox("Loop", false, nil)

	tr.SetItemTitle(rec, "Stop recording (F9)")
	tr.SetItemChecked(loop, true)
	tr.SetItemChecked(1, true) // separator
	tr.SetItemChecked(99, true)

	if got := tr.items[rec].Title; got != "Stop recording (F9)" {
		t.Errorf("Expected new title, got %q", got)
	}
	if !tr.items[loop].Checked || !tr.items[loop].Checkbox {
		t.Errorf("Expected checked checkbox, got %+v", tr.items[loop])
	}
	if loop != 2 {
		t.Errorf("Expected separators to take an id, got %d", loop)
	}
	if tr.ready() {
		t.Error("Expected tray not to be ready before Run")
	}
}

// TestIcon tests the ICO directory matches the data
func TestIcon(t *testing.T) {
	icon := getIcon()
	size := binary.LittleEndian.Uint32(icon[14:18])
	offset := binary.LittleEndian.Uint32(icon[18:22])
	if int(offset+size) != len(icon) {
		t.Errorf("Expected offset+size %d to equal length %d", offset+size, len(icon))
	}
}
