package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS         int     `yaml:"tick_ms"`         // wall-clock pacing per simulated tick, 0 = as fast as possible
	TimerTicks     int64   `yaml:"timer_ticks"`     // 100 (by default), period of the timer interrupt
	SliceTicks     int64   `yaml:"slice_ticks"`     // 100 (by default), L3 round-robin quantum
	AgingThreshold int64   `yaml:"aging_threshold"` // 1500 (by default), wait beyond which a ready thread is boosted
	AgingBoost     int     `yaml:"aging_boost"`     // 10 (by default)
	Alpha          float64 `yaml:"alpha"`           // 0.5 (by default), weight of the last burst in the prediction
	StackSize      int     `yaml:"stack_size"`      // 4096 (by default)
}

// DefaultConfig holds the values used when no file, or no key, is given.
func DefaultConfig() Config {
	return Config{
		TickMS:         0,
		TimerTicks:     100,
		SliceTicks:     100,
		AgingThreshold: 1500,
		AgingBoost:     10,
		Alpha:          0.5,
		StackSize:      4096,
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only. A malformed file is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize applies sanity clamps, replacing out-of-range values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.TickMS < 0 {
		c.TickMS = 0
	}
	if c.TimerTicks <= 0 {
		c.TimerTicks = def.TimerTicks
	}
	if c.SliceTicks <= 0 {
		c.SliceTicks = def.SliceTicks
	}
	if c.AgingThreshold <= 0 {
		c.AgingThreshold = def.AgingThreshold
	}
	if c.AgingBoost <= 0 {
		c.AgingBoost = def.AgingBoost
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = def.Alpha
	}
	if c.StackSize <= 0 {
		c.StackSize = def.StackSize
	}
}
