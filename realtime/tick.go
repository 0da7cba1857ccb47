package realtime

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/comalice/trafficlight"
)

// ColorReader answers color queries. *Runtime implements it.
type ColorReader interface {
	Color(ctx context.Context) (trafficlight.Color, error)
}

// Observation is one answer seen by a Poller.
type Observation struct {
	Poll  int // 1-based
	At    time.Time
	Color trafficlight.Color
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	Interval time.Duration // Time between polls (default: trafficlight.DefaultPollInterval)
	Count    int           // Polls before Run returns; zero or less polls until ctx ends
	Logger   *zap.SugaredLogger
	// Ticks replaces the internal ticker. Each value received triggers one
	// poll and is used as Observation.At.
	Ticks <-chan time.Time
}

// Poller asks for the color at a fixed interval. The first poll happens one
// interval after Run starts.
type Poller struct {
	src ColorReader
	cfg PollerConfig
	log *zap.SugaredLogger
}

// NewPoller creates a poller reading from src.
func NewPoller(src ColorReader, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = trafficlight.DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Poller{src: src, cfg: cfg, log: cfg.Logger}
}

// Run polls until Count answers were reported or ctx ends, calling fn with
// each answer in order. A failed poll ends Run with its error.
func (p *Poller) Run(ctx context.Context, fn func(Observation)) error {
	ticks := p.cfg.Ticks
	if ticks == nil {
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for n := 1; p.cfg.Count <= 0 || n <= p.cfg.Count; n++ {
		var at time.Time
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ticks:
			if !ok {
				return nil
			}
			at = t
		}

		c, err := p.src.Color(ctx)
		if err != nil {
			return errors.Wrapf(err, "poll %d", n)
		}
		p.log.Debugw("polled", "poll", n, "color", c)
		fn(Observation{Poll: n, At: at, Color: c})
	}
	return nil
}

// Collect runs the poller and returns the observed colors in order.
func (p *Poller) Collect(ctx context.Context) ([]trafficlight.Color, error) {
	var colors []trafficlight.Color
	err := p.Run(ctx, func(o Observation) {
		colors = append(colors, o.Color)
	})
	return colors, err
}
