// Package config provides configuration management for the action recorder.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"actionrecorder/internal/storage"
	"actionrecorder/internal/transform"
)

// EnvPrefix prefixes every environment override, e.g.
// ACTIONRECORDER_PLAYBACK_LOOP=true.
const EnvPrefix = "ACTIONRECORDER_"

// Limits applied by Validate.
const (
	MinMultiplier  = 0.01
	MaxMultiplier  = 5.0
	MinFixedDelay  = 1
	MaxFixedDelay  = 10000
	MaxGraceMs     = 10000
	DefaultAPIPort = 18090
)

// Config represents the application configuration
type Config struct {
	// Playback holds the transform and loop settings
	Playback PlaybackConfig `toml:"playback" json:"playback" envPrefix:"PLAYBACK_"`

	// Hotkeys holds the global shortcuts
	Hotkeys HotkeyConfig `toml:"hotkeys" json:"hotkeys" envPrefix:"HOTKEYS_"`

	// API holds the local control server settings
	API APIConfig `toml:"api" json:"api" envPrefix:"API_"`

	// General contains general application settings
	General GeneralConfig `toml:"general" json:"general" envPrefix:"GENERAL_"`
}

// PlaybackConfig controls how a log is replayed
type PlaybackConfig struct {
	// Loop replays until stopped
	Loop bool `toml:"loop" json:"loop" env:"LOOP"`

	// SuppressMouseMovePath drops intermediate cursor moves while nothing is held
	SuppressMouseMovePath bool `toml:"suppress_mouse_move_path" json:"suppress_mouse_move_path" env:"SUPPRESS_MOUSE_MOVE_PATH"`

	// SpeedMode is "original", "multiplier" or "fixed"
	SpeedMode string `toml:"speed_mode" json:"speed_mode" env:"SPEED_MODE"`

	// SpeedMultiplier scales every delay in multiplier mode
	SpeedMultiplier float64 `toml:"speed_multiplier" json:"speed_multiplier" env:"SPEED_MULTIPLIER"`

	// FixedDelayMs replaces every delay in fixed mode
	FixedDelayMs int32 `toml:"fixed_delay_ms" json:"fixed_delay_ms" env:"FIXED_DELAY_MS"`

	// TrailingGraceMs is the pause after a single pass before playback reports done
	TrailingGraceMs int `toml:"trailing_grace_ms" json:"trailing_grace_ms" env:"TRAILING_GRACE_MS"`
}

// HotkeyConfig holds hotkey strings such as "F9" or "Ctrl+Alt+R"
type HotkeyConfig struct {
	Record   string `toml:"record" json:"record" env:"RECORD"`
	PlayStop string `toml:"play_stop" json:"play_stop" env:"PLAY_STOP"`
}

// APIConfig controls the HTTP control server
type APIConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" env:"ENABLED"`
	Port    int    `toml:"port" json:"port" env:"PORT"`
	Token   string `toml:"token" json:"token,omitempty" env:"TOKEN"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// LastFile is the most recently imported or exported .ra path
	LastFile string `toml:"last_file" json:"last_file" env:"LAST_FILE"`

	// ShowTray shows the system tray icon in service mode
	ShowTray bool `toml:"show_tray" json:"show_tray" env:"SHOW_TRAY"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Playback: PlaybackConfig{
			SpeedMode:       transform.Original.String(),
			SpeedMultiplier: 1,
			FixedDelayMs:    100,
			TrailingGraceMs: 200,
		},
		Hotkeys: HotkeyConfig{
			Record:   "F9",
			PlayStop: "F10",
		},
		API: APIConfig{
			Enabled: true,
			Port:    DefaultAPIPort,
		},
		General: GeneralConfig{
			ShowTray: true,
		},
	}
}

// Validate clamps numeric settings into their accepted ranges and resets
// unknown values to defaults. It returns the list of fields it changed.
func (c *Config) Validate() []string {
	var fixed []string
	def := DefaultConfig()

	if _, err := transform.ParseMode(c.Playback.SpeedMode); err != nil {
		c.Playback.SpeedMode = def.Playback.SpeedMode
		fixed = append(fixed, "playback.speed_mode")
	}
	if c.Playback.SpeedMultiplier < MinMultiplier || math.IsNaN(c.Playback.SpeedMultiplier) {
		c.Playback.SpeedMultiplier = MinMultiplier
		fixed = append(fixed, "playback.speed_multiplier")
	} else if c.Playback.SpeedMultiplier > MaxMultiplier {
		c.Playback.SpeedMultiplier = MaxMultiplier
		fixed = append(fixed, "playback.speed_multiplier")
	}
	if c.Playback.FixedDelayMs < MinFixedDelay {
		c.Playback.FixedDelayMs = MinFixedDelay
		fixed = append(fixed, "playback.fixed_delay_ms")
	} else if c.Playback.FixedDelayMs > MaxFixedDelay {
		c.Playback.FixedDelayMs = MaxFixedDelay
		fixed = append(fixed, "playback.fixed_delay_ms")
	}
	if c.Playback.TrailingGraceMs < 0 || c.Playback.TrailingGraceMs > MaxGraceMs {
		c.Playback.TrailingGraceMs = def.Playback.TrailingGraceMs
		fixed = append(fixed, "playback.trailing_grace_ms")
	}
	if c.Hotkeys.Record == "" {
		c.Hotkeys.Record = def.Hotkeys.Record
		fixed = append(fixed, "hotkeys.record")
	}
	if c.Hotkeys.PlayStop == "" {
		c.Hotkeys.PlayStop = def.Hotkeys.PlayStop
		fixed = append(fixed, "hotkeys.play_stop")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		c.API.Port = def.API.Port
		fixed = append(fixed, "api.port")
	}
	return fixed
}

// TransformOptions converts the playback settings for the transform pipeline
func (c Config) TransformOptions() transform.Options {
	mode, err := transform.ParseMode(c.Playback.SpeedMode)
	if err != nil {
		mode = transform.Original
	}
	return transform.Options{
		SuppressMouseMovePath: c.Playback.SuppressMouseMovePath,
		Timing: transform.Timing{
			Mode:       mode,
			Multiplier: c.Playback.SpeedMultiplier,
			FixedMs:    c.Playback.FixedDelayMs,
		},
	}
}

// ApplyEnv overrides fields from ACTIONRECORDER_* environment variables
func (c *Config) ApplyEnv() error {
	return env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
}

// Decode parses TOML on top of the defaults
func Decode(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders cfg as TOML
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     Config
	onChanged  []func(Config)
}

// NewManager creates a new configuration manager. An empty path selects the
// per-user configuration directory.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = getConfigPath()
		if err != nil {
			return nil, err
		}
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "actionrecorder")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "ActionRecorder")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "actionrecorder")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk, applies environment overrides and
// validates it. A missing file leaves the defaults in place.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return err
	default:
		if cfg, err = Decode(data); err != nil {
			return fmt.Errorf("config: parse %s: %w", m.configPath, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if fixed := cfg.Validate(); len(fixed) > 0 {
		log.Printf("Config: Adjusted out of range settings: %v", fixed)
	}

	m.replace(cfg)
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	cfg := m.config
	m.mu.Unlock()

	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return storage.WriteFileAtomic(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set validates and replaces the configuration
func (m *Manager) Set(cfg Config) {
	cfg.Validate()
	m.replace(cfg)
}

// Update applies fn to a copy of the configuration and stores the result
func (m *Manager) Update(fn func(*Config)) Config {
	cfg := m.Get()
	fn(&cfg)
	m.Set(cfg)
	return m.Get()
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

// replace stores cfg and notifies callbacks when it differs from the current value.
func (m *Manager) replace(cfg Config) {
	m.mu.Lock()
	changed := m.config != cfg
	m.config = cfg
	callbacks := append([]func(Config){}, m.onChanged...)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range callbacks {
		fn(cfg)
	}
}
