package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/prospectly/leaddeck/internal/logging"
)

// FileName is the TOML config file for user preferences.
const FileName = "config.toml"

// Config represents user-facing configuration in TOML format. Every
// field has a working default; a missing file is not an error.
type Config struct {
	// Cards tunes the card interaction thresholds.
	Cards CardSettings `toml:"cards"`

	// Logs defines log management settings.
	Logs LogSettings `toml:"logs"`
}

// CardSettings tunes the swipe/minimize behavior of dashboard cards.
// Distances are in terminal cells.
type CardSettings struct {
	// DismissThreshold is the rightward drag distance past which a
	// release dismisses the card (default: 12).
	DismissThreshold float64 `toml:"dismiss_threshold"`

	// MinimizeDragDistance is the leftward drag distance that maps to
	// full compression (default: 24).
	MinimizeDragDistance float64 `toml:"minimize_drag_distance"`

	// StripCount is the number of horizontal strips the card is cut
	// into during the collapse animation (default: 24).
	StripCount int `toml:"strip_count"`

	// DelayFraction staggers strip start times, bottom first
	// (default: 0.35).
	DelayFraction float64 `toml:"delay_fraction"`

	// FadeStart is the strip progress at which it starts fading out to
	// reveal the icon underneath (default: 0.5).
	FadeStart float64 `toml:"fade_start"`

	// CommitMillis is the duration of the collapse/restore/dismiss
	// animations in milliseconds (default: 280).
	CommitMillis int `toml:"commit_millis"`

	// FrameMillis is the animation frame interval in milliseconds
	// (default: 16, ~60fps).
	FrameMillis int `toml:"frame_millis"`
}

// LogSettings defines log management settings.
type LogSettings struct {
	// Level is the minimum log level (default: "info").
	Level string `toml:"level"`

	// Format is "json" or "text" (default: "json").
	Format string `toml:"format"`

	// Debug enables file logging even without LEADDECK_DEBUG.
	Debug bool `toml:"debug"`
}

var (
	cached   *Config
	cachedMu sync.Mutex
)

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Cards: CardSettings{
			DismissThreshold:     12,
			MinimizeDragDistance: 24,
			StripCount:           24,
			DelayFraction:        0.35,
			FadeStart:            0.5,
			CommitMillis:         280,
			FrameMillis:          16,
		},
		Logs: LogSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the config from the default data directory, caching the
// result. A missing file yields the defaults.
func Load() (*Config, error) {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cached != nil {
		return cached, nil
	}

	dir, err := DataDir()
	if err != nil {
		return Default(), err
	}
	cfg, err := LoadFrom(filepath.Join(dir, FileName))
	if err != nil {
		return cfg, err
	}
	cached = cfg
	return cfg, nil
}

// LoadFrom reads a specific config file, applying defaults for any
// missing fields. A nonexistent file yields the defaults with no error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		logging.ForComponent(logging.CompConfig).Warn("config parse failed, using defaults",
			"path", path, "error", err)
		return Default(), err
	}
	applyFloors(cfg)
	return cfg, nil
}

// applyFloors rejects zero/negative values a hand-edited file could
// introduce; the strip math needs all of these positive.
func applyFloors(cfg *Config) {
	def := Default()
	if cfg.Cards.DismissThreshold <= 0 {
		cfg.Cards.DismissThreshold = def.Cards.DismissThreshold
	}
	if cfg.Cards.MinimizeDragDistance <= 0 {
		cfg.Cards.MinimizeDragDistance = def.Cards.MinimizeDragDistance
	}
	if cfg.Cards.StripCount <= 0 {
		cfg.Cards.StripCount = def.Cards.StripCount
	}
	if cfg.Cards.DelayFraction < 0 || cfg.Cards.DelayFraction >= 1 {
		cfg.Cards.DelayFraction = def.Cards.DelayFraction
	}
	if cfg.Cards.FadeStart <= 0 || cfg.Cards.FadeStart > 1 {
		cfg.Cards.FadeStart = def.Cards.FadeStart
	}
	if cfg.Cards.CommitMillis <= 0 {
		cfg.Cards.CommitMillis = def.Cards.CommitMillis
	}
	if cfg.Cards.FrameMillis <= 0 {
		cfg.Cards.FrameMillis = def.Cards.FrameMillis
	}
}

// DataDir returns the directory holding config, state, and logs,
// creating it if needed (0700: state may reference lead data).
func DataDir() (string, error) {
	if dir := os.Getenv("LEADDECK_HOME"); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", err
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".leaddeck")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
