// Package config loads and validates streaming configuration from TOML files,
// with defaults suitable for medium-scale scenes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the tunable parameters of the streaming core.
type Config struct {
	// LoadDistance is the distance below which an in-frustum node loads.
	LoadDistance float32 `toml:"load_distance"`

	// UnloadDistance is the distance above which a loaded node unloads.
	// Must be strictly greater than LoadDistance: the gap is the hysteresis
	// band that prevents load/unload oscillation.
	UnloadDistance float32 `toml:"unload_distance"`

	// TickIntervalMS is the scheduler tick interval in milliseconds.
	TickIntervalMS int `toml:"tick_interval_ms"`

	// MaxConcurrentLoads caps the number of node loads in flight.
	MaxConcurrentLoads int `toml:"max_concurrent_loads"`

	// MaxTextureDimension clamps decoded texture size, aspect-preserving.
	MaxTextureDimension int `toml:"max_texture_dimension"`

	// PadBlockCompression pads texture dimensions to multiples of 4.
	PadBlockCompression bool `toml:"pad_block_compression"`
}

// Default returns the default streaming configuration.
//
// Returns:
//   - Config: defaults (load 100, unload 150, 200ms tick, 4 loads, 2048px)
func Default() Config {
	return Config{
		LoadDistance:        100,
		UnloadDistance:      150,
		TickIntervalMS:      200,
		MaxConcurrentLoads:  4,
		MaxTextureDimension: 2048,
		PadBlockCompression: false,
	}
}

// Load reads a TOML config file over the defaults.
//
// Parameters:
//   - path: path to the TOML file
//
// Returns:
//   - Config: the merged configuration
//   - error: error if the file cannot be read, parsed, or validated
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration invariants.
//
// Returns:
//   - error: error describing the first violated invariant
func (c Config) Validate() error {
	if c.LoadDistance <= 0 {
		return errors.New("load_distance must be positive")
	}
	if c.UnloadDistance <= c.LoadDistance {
		return fmt.Errorf("unload_distance (%v) must exceed load_distance (%v)", c.UnloadDistance, c.LoadDistance)
	}
	if c.TickIntervalMS <= 0 {
		return errors.New("tick_interval_ms must be positive")
	}
	if c.MaxConcurrentLoads <= 0 {
		return errors.New("max_concurrent_loads must be positive")
	}
	if c.MaxTextureDimension < 0 {
		return errors.New("max_texture_dimension must not be negative")
	}
	return nil
}

// TickInterval returns the scheduler interval as a duration.
//
// Returns:
//   - time.Duration: the tick interval
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}
