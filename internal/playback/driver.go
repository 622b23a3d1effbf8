// Package playback replays macro events through an injector.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"actionrecorder/internal/input"
	"actionrecorder/internal/macro"
	"actionrecorder/internal/transform"
)

// DefaultGrace is the pause after the last event of a single pass before
// the driver reports Idle.
const DefaultGrace = 200 * time.Millisecond

var (
	// ErrNoSource is returned by Start when the request has no event source
	ErrNoSource = errors.New("playback request has no source")

	// ErrNothingToPlay ends a run whose source produced no events
	ErrNothingToPlay = errors.New("nothing to play")
)

// State is the driver's run state.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Logger receives driver messages.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Progress is reported after every dispatched event.
type Progress struct {
	Session uuid.UUID
	// Index counts dispatched events across all passes of the session.
	Index int
	Event macro.Event
	// Err is the injector error for this event, if any.
	Err error
}

// Request describes one playback session.
type Request struct {
	// Source and Options are read again at the start of every pass, so
	// changes made while looping apply from the next pass on.
	Source  func() []macro.Event
	Options func() transform.Options
	Loop    bool

	// OnProgress runs on the playback goroutine and must not block.
	OnProgress func(Progress)
	// OnDone runs on the playback goroutine before the driver becomes Idle.
	// It receives nil on normal completion and context.Canceled after Stop.
	// It must not call Start, Stop or Wait.
	OnDone func(session uuid.UUID, err error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Driver runs at most one playback session at a time.
type Driver struct {
	injector input.Injector
	logger   Logger
	grace    time.Duration
	sleep    SleepFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
}

// Option configures a Driver.
type Option func(*Driver)

// WithGrace sets the pause after the last event of a single pass.
func WithGrace(d time.Duration) Option {
	return func(dr *Driver) { dr.grace = d }
}

// WithSleep replaces the context-aware timer used for delays.
func WithSleep(fn SleepFunc) Option {
	return func(dr *Driver) { dr.sleep = fn }
}

// NewDriver creates a driver dispatching to injector.
func NewDriver(injector input.Injector, logger Logger, opts ...Option) *Driver {
	d := &Driver{
		injector: injector,
		logger:   logger,
		grace:    DefaultGrace,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sleep waits for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State reports whether a session is running.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Start begins a new session. A session already in flight is cancelled and
// awaited first.
func (d *Driver) Start(ctx context.Context, req Request) (uuid.UUID, error) {
	if req.Source == nil {
		return uuid.Nil, ErrNoSource
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	session := uuid.New()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	d.state.Store(int32(Running))

	go func() {
		err := d.run(runCtx, session, req)
		cancel()

		switch {
		case err == nil:
			d.logger.Info("Playback finished")
		case errors.Is(err, context.Canceled):
			d.logger.Info("Playback stopped")
		default:
			d.logger.Error("Playback aborted: %v", err)
		}

		if req.OnDone != nil {
			req.OnDone(session, err)
		}
		d.state.Store(int32(Idle))
		close(done)
	}()

	return session, nil
}

// Stop cancels the running session and waits for it to exit. It is a no-op
// when idle.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Driver) stopLocked() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
}

// Wait blocks until the current session, if any, has exited.
func (d *Driver) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (d *Driver) run(ctx context.Context, session uuid.UUID, req Request) error {
	index := 0
	for pass := 1; ; pass++ {
		var opts transform.Options
		if req.Options != nil {
			opts = req.Options()
		}
		events, err := transform.Apply(req.Source(), opts)
		if err != nil {
			return fmt.Errorf("pass %d: %w", pass, err)
		}
		if len(events) == 0 {
			return ErrNothingToPlay
		}

		if pass == 1 {
			d.logger.Info("Playback started: %d events, timing %s, loop %v", len(events), opts.Timing.Mode, req.Loop)
		}

		for _, e := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.sleep(ctx, time.Duration(e.DelayMs)*time.Millisecond); err != nil {
				return err
			}
			// Stop may land while the timer fires; never dispatch after it.
			if err := ctx.Err(); err != nil {
				return err
			}

			injErr := d.injector.Inject(e.Kind, e.Payload)
			if injErr != nil && !errors.Is(injErr, input.ErrUnsupportedPlatform) {
				d.logger.Warn("Playback: event %d (%s) failed: %v", index, e.Kind, injErr)
			}
			if req.OnProgress != nil {
				req.OnProgress(Progress{Session: session, Index: index, Event: e, Err: injErr})
			}
			index++

			if errors.Is(injErr, input.ErrUnsupportedPlatform) {
				return injErr
			}
		}

		if !req.Loop {
			return d.sleep(ctx, d.grace)
		}
	}
}
