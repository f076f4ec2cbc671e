// Package config loads welllit.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/franksops/welllit/engine"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "welllit.yaml"

type Config struct {
	StateDir           string     `yaml:"state_dir"`
	OutputDir          string     `yaml:"output_dir"`
	DefaultDestination string     `yaml:"default_destination"`
	Checkpoint         Checkpoint `yaml:"checkpoint"`
	Log                Log        `yaml:"log"`
}

type Checkpoint struct {
	EventInterval int           `yaml:"event_interval"`
	TimeInterval  time.Duration `yaml:"time_interval"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		StateDir:           "./.welllit-state",
		OutputDir:          "./output",
		DefaultDestination: "DEST",
		Checkpoint: Checkpoint{
			EventInterval: engine.DefaultCheckpointConfig.EventInterval,
			TimeInterval:  engine.DefaultCheckpointConfig.TimeInterval,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.StateDir == "" {
		return errors.New("state_dir is required")
	}
	if c.DefaultDestination == "" {
		return errors.New("default_destination is required")
	}
	if c.Checkpoint.EventInterval < 1 {
		return fmt.Errorf("checkpoint.event_interval must be at least 1, got %d", c.Checkpoint.EventInterval)
	}
	if c.Checkpoint.TimeInterval < 0 {
		return fmt.Errorf("checkpoint.time_interval must not be negative, got %s", c.Checkpoint.TimeInterval)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// CheckpointConfig converts the checkpoint section for the tracker.
func (c Config) CheckpointConfig() engine.CheckpointConfig {
	return engine.CheckpointConfig{
		EventInterval: c.Checkpoint.EventInterval,
		TimeInterval:  c.Checkpoint.TimeInterval,
	}
}
