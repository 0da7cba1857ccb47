// Package trafficlight implements a timed traffic-light controller as a
// hierarchical state machine.
//
// The hierarchy is flat below one shared ancestor:
//
//	Base
//	├── Initial
//	├── Red
//	├── Yellow
//	└── Green
//
// Base answers GetColor and handles Initialize; every leaf declines messages
// to it after checking whether its own dwell has expired. Timers are advisory:
// expiry is noticed only when a message is dispatched, so the caller's polling
// cadence decides how promptly the color changes.
//
// A Machine is not safe for concurrent use. Wrap it in a realtime.Runtime to
// serve several goroutines.
package trafficlight

import (
	"time"

	"go.uber.org/zap"

	"github.com/comalice/trafficlight/internal/core"
	"github.com/comalice/trafficlight/internal/primitives"
)

type options struct {
	clock     primitives.Clock
	logger    *zap.SugaredLogger
	observers []core.Observer
}

// Option configures a Machine.
type Option func(*options)

// WithClock replaces the wall clock, typically with a primitives.ManualClock
// in tests.
func WithClock(c primitives.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger used by the states and the executor.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an executor observer such as a metrics recorder.
func WithObserver(obs core.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Machine is a started traffic-light state machine.
type Machine struct {
	light *Light
	exec  *executor
}

// New validates cfg, builds the state table and starts the machine in
// Initial, which shows cfg.StartColor until the first dispatch.
func New(cfg Config, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		clock:  primitives.SystemClock{},
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	light := &Light{
		cfg:   cfg,
		clock: o.clock,
		log:   o.logger.With("machine", cfg.ID),
	}
	execOpts := []core.Option{
		core.WithName(cfg.ID),
		core.WithLogger(o.logger.Named("core")),
	}
	for _, obs := range o.observers {
		execOpts = append(execOpts, core.WithObserver(obs))
	}
	exec, err := core.NewExecutor(light, reg, StateInitial, execOpts...)
	if err != nil {
		return nil, err
	}
	if err := exec.Start(); err != nil {
		return nil, err
	}
	return &Machine{light: light, exec: exec}, nil
}

// Dispatch delivers one message and runs it to completion. The returned error
// reports a failed reply or a rejected Initialize; the machine stays usable.
func (m *Machine) Dispatch(msg Message) error {
	return m.exec.Dispatch(msg)
}

// ID returns the configured machine ID.
func (m *Machine) ID() string { return m.light.cfg.ID }

// Color returns the color currently shown.
func (m *Machine) Color() Color { return m.light.Color() }

// Deadline returns the instant at which the current dwell expires.
func (m *Machine) Deadline() time.Time { return m.light.Deadline() }

// Durations returns the dwell times in effect.
func (m *Machine) Durations() Durations { return m.light.Durations() }

// State returns the current leaf state.
func (m *Machine) State() core.StateID { return m.exec.Current() }

// StateName returns the name of the current leaf state.
func (m *Machine) StateName() string { return m.exec.CurrentName() }

// Previous returns the leaf state active before the last switch.
func (m *Machine) Previous() core.StateID { return m.exec.Previous() }

// Stats returns the entry, dispatch and exit counters of state id.
func (m *Machine) Stats(id core.StateID) core.Stats { return m.exec.Stats(id) }

// Unhandled returns how many messages no state consumed.
func (m *Machine) Unhandled() uint64 { return m.exec.Unhandled() }

// Snapshot describes every state, for visualizers.
func (m *Machine) Snapshot() []core.StateView { return m.exec.Snapshot() }
