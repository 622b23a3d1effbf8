package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"actionrecorder/internal/transform"
)

// TestDefaults tests that the defaults need no adjustment
func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if fixed := cfg.Validate(); len(fixed) != 0 {
		t.Errorf("Expected valid defaults, adjusted %v", fixed)
	}
	if cfg.Hotkeys.Record != "F9" || cfg.Hotkeys.PlayStop != "F10" {
		t.Errorf("Unexpected default hotkeys %+v", cfg.Hotkeys)
	}
}

// TestValidateClamps tests the accepted ranges
func TestValidateClamps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(Config) bool
	}{
		{"multiplier low", func(c *Config) { c.Playback.SpeedMultiplier = 0 }, func(c Config) bool { return c.Playback.SpeedMultiplier == MinMultiplier }},
		{"multiplier high", func(c *Config) { c.Playback.SpeedMultiplier = 50 }, func(c Config) bool { return c.Playback.SpeedMultiplier == MaxMultiplier }},
		{"fixed low", func(c *Config) { c.Playback.FixedDelayMs = 0 }, func(c Config) bool { return c.Playback.FixedDelayMs == MinFixedDelay }},
		{"fixed high", func(c *Config) { c.Playback.FixedDelayMs = 20000 }, func(c Config) bool { return c.Playback.FixedDelayMs == MaxFixedDelay }},
		{"unknown mode", func(c *Config) { c.Playback.SpeedMode = "warp" }, func(c Config) bool { return c.Playback.SpeedMode == "original" }},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, func(c Config) bool { return c.API.Port == DefaultAPIPort }},
		{"empty hotkey", func(c *Config) { c.Hotkeys.Record = "" }, func(c Config) bool { return c.Hotkeys.Record == "F9" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if fixed := cfg.Validate(); len(fixed) != 1 {
				t.Errorf("Expected one adjusted field, got %v", fixed)
			}
			if !tt.check(cfg) {
				t.Errorf("Unexpected result %+v", cfg)
			}
		})
	}
}

// TestTransformOptions tests the conversion to pipeline options
func TestTransformOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Playback.SpeedMode = "fixed"
	cfg.Playback.FixedDelayMs = 50
	cfg.Playback.SuppressMouseMovePath = true

	opts := cfg.TransformOptions()
	if opts.Timing.Mode != transform.Fixed || opts.Timing.FixedMs != 50 || !opts.SuppressMouseMovePath {
		t.Errorf("Unexpected options %+v", opts)
	}
	if err := opts.Timing.Validate(); err != nil {
		t.Errorf("Expected valid timing, got %v", err)
	}
}

// TestTOMLRoundTrip tests encoding and decoding the file format
func TestTOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Playback.Loop = true
	cfg.Playback.SpeedMode = "multiplier"
	cfg.Playback.SpeedMultiplier = 2.5
	cfg.API.Token = "secret"

	data, err := Encode(cfg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), "[playback]") {
		t.Errorf("Expected a [playback] table, got:\n%s", data)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != cfg {
		t.Errorf("Expected %+v, got %+v", cfg, got)
	}
}

// TestDecodePartial tests that missing keys keep their defaults
func TestDecodePartial(t *testing.T) {
	got, err := Decode([]byte("[playback]\nloop = true\n"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.Playback.Loop || got.Playback.TrailingGraceMs != 200 || got.API.Port != DefaultAPIPort {
		t.Errorf("Unexpected config %+v", got)
	}
}

// TestEnvOverrides tests ACTIONRECORDER_* variables
func TestEnvOverrides(t *testing.T) {
	t.Setenv("ACTIONRECORDER_PLAYBACK_LOOP", "true")
	t.Setenv("ACTIONRECORDER_PLAYBACK_FIXED_DELAY_MS", "75")
	t.Setenv("ACTIONRECORDER_API_PORT", "19000")
	t.Setenv("ACTIONRECORDER_HOTKEYS_RECORD", "Ctrl+F9")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if !cfg.Playback.Loop || cfg.Playback.FixedDelayMs != 75 || cfg.API.Port != 19000 || cfg.Hotkeys.Record != "Ctrl+F9" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Hotkeys.PlayStop != "F10" {
		t.Errorf("Expected unset variables to keep defaults, got %q", cfg.Hotkeys.PlayStop)
	}
}

// TestManagerLoadSave tests persistence and change callbacks
func TestManagerLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if err := m.Load(); err != nil {
		t.Fatalf("Load of a missing file failed: %v", err)
	}

	var calls int
	m.RegisterChangeCallback(func(Config) { calls++ })

	m.Update(func(c *Config) { c.Playback.SpeedMultiplier = 9 })
	if got := m.Get().Playback.SpeedMultiplier; got != MaxMultiplier {
		t.Errorf("Expected clamped multiplier, got %v", got)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m2, _ := NewManager(path)
	if err := m2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m2.Get() != m.Get() {
		t.Errorf("Expected reloaded config to match")
	}

	m.Set(m.Get())
	if calls != 1 {
		t.Errorf("Expected 1 change callback, got %d", calls)
	}
}

// TestManagerLoadInvalid tests a malformed file
func TestManagerLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[playback\n"), 0o644)

	m, _ := NewManager(path)
	if err := m.Load(); err == nil {
		t.Error("Expected a parse error")
	}
	if m.Get() != DefaultConfig() {
		t.Error("Expected defaults to remain after a failed load")
	}
}

// TestWatchReloads tests that an external edit reaches callbacks
func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	m, _ := NewManager(path)

	changed := make(chan Config, 4)
	var once sync.Once
	m.RegisterChangeCallback(func(c Config) {
		once.Do(func() { changed <- c })
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- m.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[playback]\nloop = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if !c.Playback.Loop {
			t.Errorf("Expected loop enabled after reload, got %+v", c.Playback)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	if err := <-watchErr; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}
