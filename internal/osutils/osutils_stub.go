//go:build !windows

// Package osutils holds small platform checks used at startup.
package osutils

import (
	"os"
	"runtime"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// InputAccessWarning describes what the global hook and injector cannot
// reach from this process, or returns "" when nothing is restricted.
func InputAccessWarning() string {
	return "global input capture and playback are not supported on " + runtime.GOOS + "; use -dry-run to preview a recording"
}
