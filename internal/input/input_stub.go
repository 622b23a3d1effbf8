//go:build !windows

package input

import "actionrecorder/internal/macro"

// Stub implementation for platforms without a native backend

type stubHook struct{}

// NewHook creates a stub hook
func NewHook() Hook {
	return stubHook{}
}

// Start always fails (stub)
func (stubHook) Start() error {
	return ErrUnsupportedPlatform
}

// Stop is a no-op (stub)
func (stubHook) Stop() error {
	return nil
}

// Events returns nil (stub)
func (stubHook) Events() <-chan Event {
	return nil
}

type stubInjector struct{}

// NewInjector creates a stub injector
func NewInjector() Injector {
	return stubInjector{}
}

// Inject always fails (stub)
func (stubInjector) Inject(kind macro.Kind, payload macro.Payload) error {
	return ErrUnsupportedPlatform
}
