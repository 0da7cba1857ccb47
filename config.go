// Config represents the configuration of one traffic-light controller: its
// identity, starting color, per-color dwell times and the cadence of the
// driver that polls it. Validation ensures ID presence, a valid start color,
// non-negative durations and a positive poll interval.

package trafficlight

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Duration is a time.Duration that reads and writes as "1m30s" in YAML and
// JSON.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "duration %q", string(text))
	}
	*d = Duration(v)
	return nil
}

// DurationsConfig holds one dwell time per color.
type DurationsConfig struct {
	Red    Duration `json:"red" yaml:"red"`
	Yellow Duration `json:"yellow" yaml:"yellow"`
	Green  Duration `json:"green" yaml:"green"`
}

// Table converts the configuration into a Durations table.
func (d DurationsConfig) Table() Durations {
	return Durations{
		Red:    time.Duration(d.Red),
		Yellow: time.Duration(d.Yellow),
		Green:  time.Duration(d.Green),
	}
}

// Config defines a controller.
type Config struct {
	ID           string          `json:"id" yaml:"id"`
	StartColor   Color           `json:"startColor" yaml:"startColor"`
	Durations    DurationsConfig `json:"durations" yaml:"durations"`
	PollInterval Duration        `json:"pollInterval" yaml:"pollInterval"`
	LogLevel     string          `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat    string          `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
	MetricsAddr  string          `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty"`
}

// DefaultConfig returns a Config with the default durations, a Red start and
// a fresh random ID.
func DefaultConfig() Config {
	return Config{
		ID:         uuid.NewString(),
		StartColor: DefaultStartColor,
		Durations: DurationsConfig{
			Red:    Duration(DefaultRedDuration),
			Yellow: Duration(DefaultYellowDuration),
			Green:  Duration(DefaultGreenDuration),
		},
		PollInterval: Duration(DefaultPollInterval),
		LogLevel:     "INFO",
		LogFormat:    "CONSOLE",
	}
}

// Validate validates the configuration:
// - Non-empty ID
// - StartColor is Red, Yellow or Green
// - No negative durations
// - Positive poll interval
func (c *Config) Validate() error {
	if c.ID == "" {
		return errors.New("controller ID is required")
	}
	if !c.StartColor.Valid() {
		return errors.Wrapf(ErrInvalidColor, "start color %d", int(c.StartColor))
	}
	if err := c.Durations.Table().Validate(); err != nil {
		return errors.Wrap(err, "durations")
	}
	if c.PollInterval <= 0 {
		return errors.Newf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}
