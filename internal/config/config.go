// Package config loads the bridge server configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/comalice/childtracker"
)

// Config is the complete bridge configuration.
type Config struct {
	Listen    string              `yaml:"listen"`
	LogLevel  string              `yaml:"log_level"`
	Elements  []string            `yaml:"elements"`
	QueueSize int                 `yaml:"queue_size"`
	Origins   []string            `yaml:"origins"` // extra origin host patterns; empty means same host only
	Tracker   childtracker.Config `yaml:"tracker"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:    ":8080",
		LogLevel:  "info",
		QueueSize: 64,
		Tracker:   childtracker.DefaultConfig(),
	}
}

// Load reads path on top of Default. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "validate %s", path)
	}
	return cfg, nil
}

// Validate rejects settings the bridge cannot run with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.QueueSize <= 0 {
		return errors.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	durations := map[string]time.Duration{
		"tracker.burst_window":   c.Tracker.BurstWindow,
		"tracker.dwell_duration": c.Tracker.DwellDuration,
		"tracker.recheck_delay":  c.Tracker.RecheckDelay,
	}
	for name, d := range durations {
		if d < 0 {
			return errors.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	seen := make(map[string]bool, len(c.Elements))
	for _, id := range c.Elements {
		if id == "" {
			return errors.New("element id must not be empty")
		}
		if seen[id] {
			return errors.Errorf("duplicate element id %q", id)
		}
		seen[id] = true
	}
	return nil
}
