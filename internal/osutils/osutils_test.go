package osutils

import "testing"

// TestInputAccessWarning tests that a restricted process gets a warning
func TestInputAccessWarning(t *testing.T) {
	w := InputAccessWarning()
	if !IsAdmin() && w == "" {
		t.Error("Expected a warning for an unprivileged process")
	}
}
