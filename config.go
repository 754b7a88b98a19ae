package childtracker

import "time"

const (
	DefaultBurstWindow   = 40 * time.Millisecond
	DefaultDwellDuration = 500 * time.Millisecond
	// DefaultRecheckDelay covers the reveal animation of the embedded
	// content so that a transient visible reply is re-checked once it ends.
	DefaultRecheckDelay = 800 * time.Millisecond
)

// Config holds the tracker tunables. Zero fields take their defaults.
type Config struct {
	BurstWindow   time.Duration `json:"burst_window,omitempty" yaml:"burst_window,omitempty"`
	DwellDuration time.Duration `json:"dwell_duration,omitempty" yaml:"dwell_duration,omitempty"`
	RecheckDelay  time.Duration `json:"recheck_delay,omitempty" yaml:"recheck_delay,omitempty"`
}

// DefaultConfig returns a Config with every tunable at its default.
func DefaultConfig() Config {
	return Config{
		BurstWindow:   DefaultBurstWindow,
		DwellDuration: DefaultDwellDuration,
		RecheckDelay:  DefaultRecheckDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.BurstWindow <= 0 {
		c.BurstWindow = DefaultBurstWindow
	}
	if c.DwellDuration <= 0 {
		c.DwellDuration = DefaultDwellDuration
	}
	if c.RecheckDelay <= 0 {
		c.RecheckDelay = DefaultRecheckDelay
	}
	return c
}
