//go:build windows

// Package osutils holds small platform checks used at startup.
package osutils

import (
	"golang.org/x/sys/windows"
)

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// InputAccessWarning describes what the global hook and injector cannot
// reach from this process, or returns "" when nothing is restricted.
func InputAccessWarning() string {
	if IsAdmin() {
		return ""
	}
	// UIPI drops hooked and injected input for windows of elevated processes.
	return "not running as administrator; input to elevated windows is neither recorded nor replayed"
}
