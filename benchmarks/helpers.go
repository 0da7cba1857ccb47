// Package benchmarks measures the traffic light end to end: direct dispatch,
// the realtime mailbox and the observers a deployment attaches.
package benchmarks

import (
	"testing"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/primitives"
	"github.com/comalice/trafficlight/testutil"
)

// CyclingMachine returns a machine whose dwell times are all zero, so every
// dispatch after the first switches to the next color.
func CyclingMachine(tb testing.TB, opts ...trafficlight.Option) *trafficlight.Machine {
	tb.Helper()
	m, _ := testutil.NewMachine(tb, testutil.Config(trafficlight.Red, 0, 0, 0), opts...)
	return m
}

// SteadyMachine returns a machine that never leaves its start color while the
// clock stands still.
func SteadyMachine(tb testing.TB, opts ...trafficlight.Option) (*trafficlight.Machine, *primitives.ManualClock) {
	tb.Helper()
	return testutil.NewMachine(tb, testutil.Config(trafficlight.Green, 1, 1, 1<<40), opts...)
}

// ReusableGetColor returns a request whose reply channel is drained by the
// caller after each dispatch, avoiding one allocation per request.
func ReusableGetColor() (trafficlight.GetColor, chan trafficlight.GetColorResponse) {
	ch := make(chan trafficlight.GetColorResponse, 1)
	return trafficlight.GetColor{Reply: ch}, ch
}
