// ActionRecorder - records keyboard and mouse input and plays it back
// A global-hook macro recorder with a tray, hotkeys and a local control API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"actionrecorder/internal/config"
	"actionrecorder/internal/input"
	"actionrecorder/internal/logsink"
	"actionrecorder/internal/network"
	"actionrecorder/internal/playback"
	"actionrecorder/internal/protocol"
	"actionrecorder/internal/storage"
	"actionrecorder/internal/transform"

	"github.com/google/uuid"
)

var (
	version    = "1.0.0"
	configPath = flag.String("config", "", "Path to config.toml (default: per-user config directory)")
	playFile   = flag.String("play", "", "Play a .ra file and exit")
	loop       = flag.Bool("loop", false, "With -play: repeat until interrupted")
	speed      = flag.Float64("speed", 0, "With -play: scale every delay by this factor")
	fixed      = flag.Int("fixed", 0, "With -play: wait this many ms before every event")
	suppress   = flag.Bool("suppress", false, "With -play: skip the cursor path while nothing is held")
	dryRun     = flag.Bool("dry-run", false, "Log events instead of injecting them")
	inspect    = flag.String("inspect", "", "Print the header and events of a .ra file")
	tail       = flag.String("tail", "", "Follow the log of a running instance at host:port")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("actionrecorder version %s\n", version)
		return
	}

	// Handle --inspect flag
	if *inspect != "" {
		if err := runInspect(*inspect); err != nil {
			log.Fatalf("Inspect failed: %v", err)
		}
		return
	}

	// Initialize config
	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle --tail flag
	if *tail != "" {
		runTail(ctx, *tail, cfgMgr.Get().API.Token)
		return
	}

	// Handle --play flag
	if *playFile != "" {
		if err := runPlay(ctx, cfgMgr, *playFile); err != nil {
			stop()
			log.Fatalf("Playback failed: %v", err)
		}
		return
	}

	// Default: run as background service
	if err := runService(ctx, cfgMgr); err != nil {
		stop()
		log.Fatalf("Service failed: %v", err)
	}
}

var errMutuallyExclusive = errors.New("-speed and -fixed are mutually exclusive")

func newInjector() input.Injector {
	if *dryRun {
		return input.NewDryRunInjector()
	}
	return input.NewInjector()
}

// playOptions applies the -loop, -speed, -fixed and -suppress overrides
func playOptions(cfg config.Config) (transform.Options, bool, error) {
	opts := cfg.TransformOptions()
	if *suppress {
		opts.SuppressMouseMovePath = true
	}
	switch {
	case *speed != 0 && *fixed != 0:
		return opts, false, errMutuallyExclusive
	case *speed != 0:
		opts.Timing = transform.Timing{Mode: transform.Multiplier, Multiplier: *speed}
	case *fixed != 0:
		opts.Timing = transform.Timing{Mode: transform.Fixed, FixedMs: int32(*fixed)}
	}
	if err := opts.Timing.Validate(); err != nil {
		return opts, false, err
	}
	return opts, *loop || cfg.Playback.Loop, nil
}

func runPlay(ctx context.Context, cfgMgr *config.Manager, path string) error {
	cfg := cfgMgr.Get()
	opts, loopPlay, err := playOptions(cfg)
	if err != nil {
		return err
	}

	logger := logsink.New(nil)
	logger.Log("Trying to import Action File from %s...", path)
	l, err := storage.Load(ctx, storage.WithExtension(path))
	if err != nil {
		logger.Error("Not is possible to load action file, reason: %v", err)
		return err
	}
	logger.Log("Action File Loaded and able to play! (%d events)", l.Len())

	driver := playback.NewDriver(newInjector(), logger,
		playback.WithGrace(time.Duration(cfg.Playback.TrailingGraceMs)*time.Millisecond))

	result := make(chan error, 1)
	_, err = driver.Start(ctx, playback.Request{
		Source:  l.Events,
		Options: func() transform.Options { return opts },
		Loop:    loopPlay,
		OnProgress: func(p playback.Progress) {
			logger.Log("[A:%d] Simulating %s!", p.Index, p.Event.Kind)
		},
		OnDone: func(_ uuid.UUID, err error) { result <- err },
	})
	if err != nil {
		return err
	}

	logger.Info("You are now playing...")
	err = <-result
	driver.Wait()

	switch {
	case err == nil:
		logger.Info("End playing")
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info("Playback aborted")
		return nil
	default:
		return err
	}
}

func runInspect(path string) error {
	data, err := os.ReadFile(storage.WithExtension(path))
	if err != nil {
		return err
	}

	h, err := protocol.ReadHeader(data)
	if err != nil {
		return err
	}
	fmt.Printf("Format:   %s %s\n", h.Name, h.Version)
	fmt.Printf("Recorded: %s\n", h.RecordedAt.Format(time.RFC3339))
	fmt.Printf("Events:   %d\n", h.EventCount)

	l, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	fmt.Printf("Duration: %s\n\n", l.TotalDelay())
	for i, e := range l.Events() {
		fmt.Printf("%5d  %s\n", i, e)
	}
	return nil
}

func runTail(ctx context.Context, addr, token string) {
	c := network.NewWSClient(addr, token)
	c.OnLog = func(p protocol.LogPayload) {
		fmt.Println(logsink.Entry{Level: logsink.Level(p.Level), Line: p.Line})
	}
	c.OnState = func(s protocol.StatePayload) {
		fmt.Printf("[STATE] recording=%v playing=%v events=%d\n", s.Recording, s.Playing, s.EventCount)
	}
	c.Run(ctx)
}
