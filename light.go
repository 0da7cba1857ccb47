package trafficlight

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/comalice/trafficlight/internal/core"
	"github.com/comalice/trafficlight/internal/primitives"
)

// State identifiers. They index the registry table directly.
const (
	StateBase core.StateID = iota
	StateInitial
	StateRed
	StateYellow
	StateGreen
)

type (
	executor = core.Executor[*Light, Message]
	registry = core.Registry[*Light, Message]
)

// Light is the data the states operate on.
type Light struct {
	cfg   Config
	clock primitives.Clock
	log   *zap.SugaredLogger

	durations Durations
	color     Color
	deadline  time.Time
	// seeded is set while the deadline is the one Initial computed from
	// configuration and no color state has adopted it yet.
	seeded bool
}

// Color returns the color currently shown.
func (l *Light) Color() Color { return l.color }

// Deadline returns the instant at which the current dwell expires.
func (l *Light) Deadline() time.Time { return l.deadline }

// Durations returns a copy of the dwell times in effect.
func (l *Light) Durations() Durations { return l.durations.Clone() }

// show switches the displayed color and starts its dwell.
func (l *Light) show(c Color) {
	l.color = c
	l.deadline = l.clock.Now().Add(l.durations.For(c))
}

func (l *Light) expired() bool {
	return !l.clock.Now().Before(l.deadline)
}

// stateFor maps a color to the leaf state showing it.
func stateFor(c Color) core.StateID {
	switch c {
	case Red:
		return StateRed
	case Yellow:
		return StateYellow
	case Green:
		return StateGreen
	}
	panic(errors.AssertionFailedf("no state for %s", c))
}

func newRegistry() (*registry, error) {
	return core.NewRegistry(
		core.NewState[*Light, Message](StateBase, "Base", baseProcess),
		core.NewState[*Light, Message](StateInitial, "Initial", initialProcess).
			WithParent(StateBase).
			OnEnter(initialEnter),
		colorState(StateRed, Red),
		colorState(StateYellow, Yellow),
		colorState(StateGreen, Green),
	)
}

// baseProcess is the shared ancestor of every other state. It consumes every
// message that reaches it.
func baseProcess(l *Light, ex *executor, msg Message) (core.Result, error) {
	switch m := msg.(type) {
	case Initialize:
		if err := m.Validate(); err != nil {
			return core.Handled, errors.Wrap(err, "initialize")
		}
		l.durations = m.Durations()
		l.seeded = false
		target := stateFor(m.Color)
		if target == ex.Current() {
			// No switch follows, so no entry action restarts the dwell.
			l.show(m.Color)
		}
		ex.SetDestination(target)
		l.log.Infow("initialized", "color", m.Color, "durations", l.durations)
		return core.Handled, nil

	case GetColor:
		if err := m.respond(l.color); err != nil {
			return core.Handled, err
		}
		return core.Handled, nil

	case GetColorResponse:
		l.log.Warnw("GetColorResponse dispatched into the machine, ignoring", "color", m.Color)
		return core.Handled, nil

	default:
		l.log.Warnw("unknown message, ignoring", "type", fmt.Sprintf("%T", msg))
		return core.Handled, nil
	}
}

// initialEnter seeds the light from configuration. Initial stands in for the
// start color until the first message arrives. The seeded deadline is the
// start color's dwell: the first color state keeps it rather than restarting.
func initialEnter(l *Light) {
	l.durations = l.cfg.Durations.Table()
	l.show(l.cfg.StartColor)
	l.seeded = true
}

func initialProcess(l *Light, ex *executor, _ Message) (core.Result, error) {
	next := l.color
	if l.expired() {
		next = next.Next()
	}
	ex.SetDestination(stateFor(next))
	return core.NotHandled, nil
}

// colorState builds the leaf state that shows c and moves on to c.Next() once
// the dwell has passed. Expiry is only checked when a message arrives.
func colorState(id core.StateID, c Color) core.StateInfo[*Light, Message] {
	next := stateFor(c.Next())
	return core.NewState[*Light, Message](id, c.Title(),
		func(l *Light, ex *executor, _ Message) (core.Result, error) {
			if l.expired() {
				ex.SetDestination(next)
			}
			return core.NotHandled, nil
		}).
		WithParent(StateBase).
		OnEnter(func(l *Light) {
			if l.seeded && l.color == c {
				l.seeded = false
				return
			}
			l.seeded = false
			l.show(c)
		})
}
