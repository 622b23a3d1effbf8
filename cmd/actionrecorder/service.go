package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"actionrecorder/internal/api"
	"actionrecorder/internal/app"
	"actionrecorder/internal/config"
	"actionrecorder/internal/input"
	"actionrecorder/internal/logsink"
	"actionrecorder/internal/osutils"
	"actionrecorder/internal/protocol"
	"actionrecorder/internal/tray"
)

func runService(ctx context.Context, cfgMgr *config.Manager) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := cfgMgr.Get()
	logger := logsink.New(nil)
	if w := osutils.InputAccessWarning(); w != "" {
		logger.Warn("%s", w)
	}

	a := app.New(app.Deps{
		Config:   cfgMgr,
		Logger:   logger,
		Hook:     input.NewHook(),
		Injector: newInjector(),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(ctx) })
	g.Go(func() error {
		if err := cfgMgr.Watch(ctx); err != nil {
			log.Printf("Warning: config hot reload disabled: %v", err)
		}
		return nil
	})

	if cfg.API.Enabled {
		srv := api.NewServer(cfgMgr, a)
		hub := srv.Hub()
		unsubscribe := logger.Subscribe(hub.BroadcastLog)
		defer unsubscribe()
		a.OnProgress(hub.BroadcastProgress)
		a.OnStateChange(hub.BroadcastState)

		g.Go(func() error {
			if err := srv.Start(ctx, cfg.API.Port); err != nil {
				log.Printf("Note: ActionRecorder will continue running without the control API.")
			}
			return nil
		})
	}

	log.Printf("ActionRecorder %s running. Record: %s, Play/Stop: %s. Press Ctrl+C to stop.",
		version, cfg.Hotkeys.Record, cfg.Hotkeys.PlayStop)

	if cfg.General.ShowTray {
		t := buildTray(ctx, cfgMgr, a)
		t.OnExit(cancel)
		go func() {
			<-ctx.Done()
			log.Println("Shutting down...")
			t.Stop()
		}()
		t.Run()
		cancel()
	}

	return g.Wait()
}

// buildTray creates the tray menu mirroring the recorder's buttons
func buildTray(ctx context.Context, cfgMgr *config.Manager, a *app.App) *tray.Tray {
	cfg := cfgMgr.Get()
	t := tray.New("ActionRecorder")

	recordTitle := func(recording bool) string {
		if recording {
			return fmt.Sprintf("Stop recording (%s)", cfgMgr.Get().Hotkeys.Record)
		}
		return fmt.Sprintf("Record (%s)", cfgMgr.Get().Hotkeys.Record)
	}
	playTitle := func(playing bool) string {
		if playing {
			return fmt.Sprintf("Stop (%s)", cfgMgr.Get().Hotkeys.PlayStop)
		}
		return fmt.Sprintf("Play (%s)", cfgMgr.Get().Hotkeys.PlayStop)
	}

	recordID := t.AddMenuItem(recordTitle(false), func() { a.Record() })
	playID := t.AddMenuItem(playTitle(false), func() { a.PlayOrStop(ctx) })

	t.AddSeparator()

	toggle := func(fn func(*config.Config)) {
		cfgMgr.Update(fn)
		if err := cfgMgr.Save(); err != nil {
			log.Printf("Failed to save config: %v", err)
		}
	}
	loopID := t.AddCheckbox("Loop", cfg.Playback.Loop, func() {
		toggle(func(c *config.Config) { c.Playback.Loop = !c.Playback.Loop })
	})
	suppressID := t.AddCheckbox("Suppress mouse path", cfg.Playback.SuppressMouseMovePath, func() {
		toggle(func(c *config.Config) { c.Playback.SuppressMouseMovePath = !c.Playback.SuppressMouseMovePath })
	})

	t.AddSeparator()

	defaultFile := filepath.Join(filepath.Dir(cfgMgr.Path()), "recording.ra")
	lastFile := func() string {
		if f := cfgMgr.Get().General.LastFile; f != "" {
			return f
		}
		return defaultFile
	}
	t.AddMenuItem("Import last file", func() {
		if err := <-a.Import(ctx, lastFile()); err != nil {
			log.Printf("Import: %v", err)
		}
	})
	t.AddMenuItem("Export", func() {
		if err := <-a.Export(ctx, lastFile()); err != nil {
			log.Printf("Export: %v", err)
		}
	})

	t.AddSeparator()

	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	a.OnStateChange(func(s protocol.StatePayload) {
		t.SetItemTitle(recordID, recordTitle(s.Recording))
		t.SetItemTitle(playID, playTitle(s.Playing))
		switch {
		case s.Recording:
			t.SetTooltip("ActionRecorder - recording")
		case s.Playing:
			t.SetTooltip("ActionRecorder - playing")
		default:
			t.SetTooltip(fmt.Sprintf("ActionRecorder - %d events", s.EventCount))
		}
	})
	cfgMgr.RegisterChangeCallback(func(c config.Config) {
		t.SetItemChecked(loopID, c.Playback.Loop)
		t.SetItemChecked(suppressID, c.Playback.SuppressMouseMovePath)
	})

	return t
}
