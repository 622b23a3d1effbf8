// Package app holds the recorder's application state and wires capture,
// playback, storage and hotkeys together.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"actionrecorder/internal/capture"
	"actionrecorder/internal/config"
	"actionrecorder/internal/hotkey"
	"actionrecorder/internal/input"
	"actionrecorder/internal/logsink"
	"actionrecorder/internal/macro"
	"actionrecorder/internal/playback"
	"actionrecorder/internal/protocol"
	"actionrecorder/internal/storage"
	"actionrecorder/internal/transform"
)

// Deps are the collaborators of an App.
type Deps struct {
	Config   *config.Manager
	Logger   *logsink.Logger
	Hook     input.Hook
	Injector input.Injector

	// Optional; used by tests to control time.
	Now         func() time.Time
	Sleep       playback.SleepFunc
	SyncHotkeys bool
}

// App is the explicit application state. Recording and playback are
// mutually exclusive.
type App struct {
	cfg     *config.Manager
	logger  *logsink.Logger
	hook    input.Hook
	driver  *playback.Driver
	hotkeys *hotkey.Manager
	now     func() time.Time

	mu          sync.Mutex
	recording   bool
	playing     bool
	sink        *capture.Sink
	recordingID uuid.UUID

	active      atomic.Pointer[macro.Log]
	importTasks taskSlot
	exportTasks taskSlot

	obsMu      sync.RWMutex
	onState    []func(protocol.StatePayload)
	onProgress []func(playback.Progress)
}

// New creates an App
func New(deps Deps) *App {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	cfg := deps.Config.Get()
	opts := []playback.Option{
		playback.WithGrace(time.Duration(cfg.Playback.TrailingGraceMs) * time.Millisecond),
	}
	if deps.Sleep != nil {
		opts = append(opts, playback.WithSleep(deps.Sleep))
	}

	a := &App{
		cfg:     deps.Config,
		logger:  deps.Logger,
		hook:    deps.Hook,
		driver:  playback.NewDriver(deps.Injector, deps.Logger, opts...),
		hotkeys: hotkey.NewManager(),
		now:     now,
	}
	if deps.SyncHotkeys {
		a.hotkeys.SetAsync(false)
	}
	a.registerHotkeys(cfg)
	deps.Config.RegisterChangeCallback(a.registerHotkeys)
	return a
}

// OnStateChange registers fn for every recording or playback transition
func (a *App) OnStateChange(fn func(protocol.StatePayload)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onState = append(a.onState, fn)
}

// OnProgress registers fn for every dispatched playback event
func (a *App) OnProgress(fn func(playback.Progress)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onProgress = append(a.onProgress, fn)
}

// Log returns the active log, or nil
func (a *App) Log() *macro.Log {
	return a.active.Load()
}

// State returns a snapshot of the application state
func (a *App) State() protocol.StatePayload {
	a.mu.Lock()
	s := protocol.StatePayload{Recording: a.recording, Playing: a.playing}
	if a.recordingID != uuid.Nil {
		s.RecordingID = a.recordingID.String()
	}
	a.mu.Unlock()

	if l := a.active.Load(); l != nil {
		s.HasLog = true
		s.EventCount = l.Len()
		s.RecordedAt = l.RecordedAt().Format(time.RFC3339)
	}
	return s
}

// Record toggles recording. Starting a recording replaces the active log.
func (a *App) Record() error {
	a.mu.Lock()
	if a.playing {
		a.mu.Unlock()
		a.logger.Log("You can't record actions while playing!")
		return conflict("record", "playback in progress")
	}

	if a.recording {
		l := a.sink.Log()
		l.Freeze()
		a.recording = false
		a.sink = nil
		a.mu.Unlock()
		a.logger.Info("End recording (%d events)", l.Len())
		a.notifyState()
		return nil
	}

	cfg := a.cfg.Get()
	var ignore []int32
	ignore = append(ignore, hotkey.Codes(cfg.Hotkeys.Record)...)
	ignore = append(ignore, hotkey.Codes(cfg.Hotkeys.PlayStop)...)

	l := macro.NewLog(a.now())
	a.sink = capture.NewSink(l, capture.WithIgnore(capture.KeyFilter(ignore...)), capture.WithClock(a.now))
	a.recordingID = uuid.New()
	a.active.Store(l)
	a.recording = true
	a.mu.Unlock()

	a.logger.Info("You are now recording...")
	a.notifyState()
	return nil
}

// Play starts playing the active log with the current settings.
func (a *App) Play(ctx context.Context) error {
	a.mu.Lock()
	switch {
	case a.recording:
		a.mu.Unlock()
		a.logger.Warn("Hey! First stop recording to execute this action.")
		return conflict("play", "recording in progress")
	case a.playing:
		a.mu.Unlock()
		return conflict("play", "already playing")
	}
	l := a.active.Load()
	if l == nil || l.Len() == 0 {
		a.mu.Unlock()
		a.logger.Warn("Hey! First record your actions to play.")
		return conflict("play", "no recording loaded")
	}
	a.playing = true
	a.mu.Unlock()

	cfg := a.cfg.Get()
	_, err := a.driver.Start(ctx, playback.Request{
		// Settings and the active log are re-read on every pass.
		Source: func() []macro.Event {
			if cur := a.active.Load(); cur != nil {
				return cur.Events()
			}
			return nil
		},
		Options:    func() transform.Options { return a.cfg.Get().TransformOptions() },
		Loop:       cfg.Playback.Loop,
		OnProgress: a.progress,
		OnDone: func(uuid.UUID, error) {
			a.mu.Lock()
			a.playing = false
			a.mu.Unlock()
			a.notifyState()
		},
	})
	if err != nil {
		a.mu.Lock()
		a.playing = false
		a.mu.Unlock()
		return err
	}

	a.logger.Info("You are now playing...")
	a.notifyState()
	return nil
}

// Stop ends a recording or playback, whichever is active.
func (a *App) Stop() error {
	a.mu.Lock()
	recording := a.recording
	a.mu.Unlock()

	if recording {
		return a.Record()
	}
	a.driver.Stop()
	return nil
}

// PlayOrStop stops playback when playing and starts it otherwise.
func (a *App) PlayOrStop(ctx context.Context) error {
	a.mu.Lock()
	playing := a.playing
	a.mu.Unlock()

	if playing {
		a.driver.Stop()
		return nil
	}
	return a.Play(ctx)
}

// Import loads a .ra file in the background and publishes it as the active
// log once it has fully decoded. Importing is rejected while recording.
func (a *App) Import(ctx context.Context, path string) <-chan error {
	if a.isRecording() {
		return failed(conflict("import", "recording in progress"))
	}

	return a.importTasks.run(ctx, func(ctx context.Context) error {
		a.logger.Log("Trying to import Action File from %s...", path)
		l, err := storage.Load(ctx, path)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				a.logger.Error("Not is possible to load action file, reason: %v", err)
			}
			return err
		}
		if err := a.publish(l); err != nil {
			return err
		}
		a.rememberFile(path)

		a.logger.Log("Action File Loaded and able to play! (%d events)", l.Len())
		a.notifyState()
		return nil
	})
}

// Export writes the active log to path in the background. Paths without an
// extension get ".ra".
func (a *App) Export(ctx context.Context, path string) <-chan error {
	path = storage.WithExtension(path)
	if a.isRecording() {
		return failed(conflict("export", "recording in progress"))
	}
	l := a.active.Load()
	if l == nil || l.Len() == 0 {
		a.logger.Warn("Please, first record an action to export!")
		return failed(ErrNothingToExport)
	}

	return a.exportTasks.run(ctx, func(ctx context.Context) error {
		if err := storage.Save(ctx, path, l); err != nil {
			if !errors.Is(err, context.Canceled) {
				a.logger.Error("Export failed: %v", err)
			}
			return err
		}
		a.rememberFile(path)
		a.logger.Log("Exported! %s", path)
		return nil
	})
}

// Run feeds hook events to hotkeys and the capture sink until ctx is done.
// Without a working hook the app still serves the API and tray.
func (a *App) Run(ctx context.Context) error {
	if err := a.hook.Start(); err != nil {
		a.logger.Warn("Global input hook unavailable: %v", err)
		<-ctx.Done()
		a.shutdown()
		return nil
	}
	defer a.hook.Stop()

	events := a.hook.Events()
	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case e, ok := <-events:
			if !ok {
				a.shutdown()
				return nil
			}
			a.HandleInput(e)
		}
	}
}

// HandleInput routes one hook event.
func (a *App) HandleInput(e input.Event) {
	a.hotkeys.HandleEvent(e)
	if e.Injected {
		return
	}

	a.mu.Lock()
	sink := a.sink
	a.mu.Unlock()
	if sink == nil {
		return
	}

	if err := sink.Handle(e); err != nil {
		if !errors.Is(err, macro.ErrLogFrozen) {
			a.logger.Warn("Dropped %s: %v", e.Kind, err)
		}
		return
	}
	if last, ok := sink.Log().Last(); ok {
		a.logger.Log("[A:%d] [LT:%d] %s recorded.", sink.Log().Len(), last.DelayMs, last.Kind)
	}
}

// Close stops playback and background tasks.
func (a *App) Close() {
	a.shutdown()
}

func (a *App) shutdown() {
	a.driver.Stop()
	a.importTasks.stop()
	a.exportTasks.stop()
	if a.isRecording() {
		_ = a.Record()
	}
}

// publish makes an imported log active unless a recording has started since.
func (a *App) publish(l *macro.Log) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recording {
		return conflict("import", "recording in progress")
	}
	a.active.Store(l)
	a.recordingID = uuid.New()
	return nil
}

func (a *App) isRecording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

func (a *App) rememberFile(path string) {
	if a.cfg.Get().General.LastFile == path {
		return
	}
	a.cfg.Update(func(c *config.Config) { c.General.LastFile = path })
	if err := a.cfg.Save(); err != nil {
		a.logger.Warn("Could not save settings: %v", err)
	}
}

func (a *App) registerHotkeys(cfg config.Config) {
	a.hotkeys.Clear()
	ctx := context.Background()
	if _, err := a.hotkeys.Register(cfg.Hotkeys.Record, func() { _ = a.Record() }); err != nil {
		a.logger.Warn("Record hotkey: %v", err)
	}
	if _, err := a.hotkeys.Register(cfg.Hotkeys.PlayStop, func() { _ = a.PlayOrStop(ctx) }); err != nil {
		a.logger.Warn("Play/Stop hotkey: %v", err)
	}
}

func (a *App) progress(p playback.Progress) {
	a.logger.Log("[A:%d] Simulating %s!", p.Index, p.Event.Kind)

	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, fn := range a.onProgress {
		fn(p)
	}
}

func (a *App) notifyState() {
	s := a.State()
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, fn := range a.onState {
		fn(s)
	}
}
