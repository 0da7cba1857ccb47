// Package testutil holds helpers shared by the traffic-light tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/primitives"
)

// Epoch is the instant every ManualClock built here starts at.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Driver is the common surface of a bare machine and a realtime.Runtime, so
// the same scenario can run against both.
type Driver interface {
	Send(ctx context.Context, msg trafficlight.Message) error
	Color(ctx context.Context) (trafficlight.Color, error)
}

// MachineDriver dispatches straight into a Machine on the calling goroutine.
type MachineDriver struct {
	M *trafficlight.Machine
}

// Send dispatches msg.
func (d MachineDriver) Send(_ context.Context, msg trafficlight.Message) error {
	return d.M.Dispatch(msg)
}

// Color dispatches GetColor and returns the reply.
func (d MachineDriver) Color(_ context.Context) (trafficlight.Color, error) {
	req, reply := trafficlight.NewGetColor()
	if err := d.M.Dispatch(req); err != nil {
		return trafficlight.Red, err
	}
	return (<-reply).Color, nil
}

// Config returns a valid configuration with the given dwell times.
func Config(start trafficlight.Color, red, yellow, green time.Duration) trafficlight.Config {
	cfg := trafficlight.DefaultConfig()
	cfg.ID = "test"
	cfg.StartColor = start
	cfg.Durations = trafficlight.DurationsConfig{
		Red:    trafficlight.Duration(red),
		Yellow: trafficlight.Duration(yellow),
		Green:  trafficlight.Duration(green),
	}
	return cfg
}

// NewMachine builds a machine on a ManualClock reading Epoch.
func NewMachine(t testing.TB, cfg trafficlight.Config, opts ...trafficlight.Option) (*trafficlight.Machine, *primitives.ManualClock) {
	t.Helper()
	clock := primitives.NewManualClock(Epoch)
	m, err := trafficlight.New(cfg, append([]trafficlight.Option{trafficlight.WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return m, clock
}

// Color asks d for its color and fails the test on error.
func Color(t testing.TB, d Driver) trafficlight.Color {
	t.Helper()
	c, err := d.Color(context.Background())
	require.NoError(t, err)
	return c
}

// Poll advances clock by every before each of n color requests and returns
// the answers in order.
func Poll(t testing.TB, d Driver, clock *primitives.ManualClock, every time.Duration, n int) []trafficlight.Color {
	t.Helper()
	colors := make([]trafficlight.Color, 0, n)
	for i := 0; i < n; i++ {
		clock.Advance(every)
		colors = append(colors, Color(t, d))
	}
	return colors
}
