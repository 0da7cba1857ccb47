package trafficlight

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Default dwell times.
const (
	DefaultRedDuration    = 10 * time.Second
	DefaultYellowDuration = 3 * time.Second
	DefaultGreenDuration  = 8 * time.Second
	DefaultStartColor     = Red
	DefaultPollInterval   = time.Second
)

// Durations maps each color to how long the light stays on it.
type Durations map[Color]time.Duration

// DefaultDurations returns the default dwell times.
func DefaultDurations() Durations {
	return Durations{
		Red:    DefaultRedDuration,
		Yellow: DefaultYellowDuration,
		Green:  DefaultGreenDuration,
	}
}

// For returns the dwell time of c. Every color must have an entry before any
// deadline is computed; a missing one is a programming error and panics.
func (d Durations) For(c Color) time.Duration {
	v, ok := d[c]
	if !ok {
		panic(errors.AssertionFailedf("no duration configured for %s", c))
	}
	return v
}

// Clone returns a copy of d.
func (d Durations) Clone() Durations {
	out := make(Durations, len(d))
	for c, v := range d {
		out[c] = v
	}
	return out
}

// Validate checks that every color has a non-negative entry.
func (d Durations) Validate() error {
	for _, c := range Colors {
		v, ok := d[c]
		if !ok {
			return errors.Newf("missing duration for %s", c)
		}
		if v < 0 {
			return errors.Newf("negative duration %s for %s", v, c)
		}
	}
	return nil
}
