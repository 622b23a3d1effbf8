package input

import (
	"fmt"
	"log"
	"sync/atomic"

	"actionrecorder/internal/macro"
)

// DryRunInjector logs every action instead of performing it.
type DryRunInjector struct {
	count atomic.Int64
}

// NewDryRunInjector creates an injector that only logs
func NewDryRunInjector() *DryRunInjector {
	return &DryRunInjector{}
}

// Inject logs the action
func (d *DryRunInjector) Inject(kind macro.Kind, payload macro.Payload) error {
	e := macro.Event{Kind: kind, Payload: payload}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	n := d.count.Add(1)
	log.Printf("DryRun: #%d %s", n, e)
	return nil
}

// Count returns how many actions were injected
func (d *DryRunInjector) Count() int64 {
	return d.count.Load()
}
