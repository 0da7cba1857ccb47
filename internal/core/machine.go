// Package core provides the hierarchical state machine executor.
//
// An Executor owns a domain value SM and a Registry of states. Dispatch
// offers a message to the current leaf state and, while handlers return
// NotHandled, to each ancestor in turn. Handlers request a state change with
// SetDestination; the switch (exit actions, entry actions, new current state)
// runs once the walk has finished.
//
// An Executor is not safe for concurrent use. Callers with more than one
// producer must serialize Dispatch through a single mailbox, see package
// realtime.
package core

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	ErrNotStarted     = errors.New("executor not started")
	ErrAlreadyStarted = errors.New("executor already started")
)

// Stats counts how often a state was entered, offered a message and exited.
type Stats struct {
	Entered   uint64
	Processed uint64
	Exited    uint64
}

// Executor is the runtime instance of a state hierarchy.
type Executor[SM any, M any] struct {
	sm       SM
	registry *Registry[SM, M]
	settings settings

	initial  StateID
	current  StateID
	previous StateID
	started  bool

	// pending is the destination requested during the walk in progress.
	pending     StateID
	dispatching bool

	active    []bool
	stats     []Stats
	unhandled uint64

	deferred []M
}

// NewExecutor creates an executor that will start in initial, which must be
// a leaf. Call Start before Dispatch.
func NewExecutor[SM any, M any](sm SM, registry *Registry[SM, M], initial StateID, opts ...Option) (*Executor[SM, M], error) {
	if registry == nil {
		return nil, errors.New("nil registry")
	}
	if initial < 0 || int(initial) >= registry.Len() {
		return nil, errors.Newf("initial state %d is not registered", initial)
	}
	if !registry.IsLeaf(initial) {
		return nil, errors.Newf("initial state %q is not a leaf", registry.Name(initial))
	}

	e := &Executor[SM, M]{
		sm:       sm,
		registry: registry,
		settings: settings{logger: zap.NewNop().Sugar()},
		initial:  initial,
		current:  initial,
		previous: initial,
		pending:  NoState,
		active:   make([]bool, registry.Len()),
		stats:    make([]Stats, registry.Len()),
	}
	for _, opt := range opts {
		opt(&e.settings)
	}
	return e, nil
}

// Start enters the initial state and all of its ancestors, outermost first.
func (e *Executor[SM, M]) Start() error {
	if e.started {
		return ErrAlreadyStarted
	}
	chain := e.registry.Ancestors(e.initial)
	for i := len(chain) - 1; i >= 0; i-- {
		e.enter(chain[i])
	}
	e.started = true
	for _, o := range e.settings.observers {
		if so, ok := o.(StartObserver); ok {
			so.Started(e.settings.name, e.initial, e.registry.Name(e.initial))
		}
	}
	e.settings.logger.Debugw("started", "machine", e.settings.name, "state", e.registry.Name(e.initial))
	return nil
}

// Dispatch delivers msg to the current state. If the message caused a state
// switch, messages deferred with Defer are dispatched again afterwards, one
// generation at a time, for as long as each generation keeps switching state.
//
// Handler errors do not stop the state switch; they are returned after it.
func (e *Executor[SM, M]) Dispatch(msg M) error {
	if !e.started {
		return ErrNotStarted
	}
	if e.dispatching {
		panic(errors.AssertionFailedf("re-entrant Dispatch on machine %q", e.settings.name))
	}

	changed, err := e.dispatchOne(msg)
	for changed && len(e.deferred) > 0 {
		batch := e.deferred
		e.deferred = nil
		changed = false
		for _, m := range batch {
			c, derr := e.dispatchOne(m)
			changed = changed || c
			err = errors.CombineErrors(err, derr)
		}
	}
	return err
}

// dispatchOne runs one walk and the state switch it requested, if any. It
// reports whether the current state changed.
func (e *Executor[SM, M]) dispatchOne(msg M) (bool, error) {
	e.dispatching = true
	defer func() { e.dispatching = false }()

	e.pending = NoState

	var err error
	id := e.current
	for id != NoState {
		info := e.registry.State(id)
		e.stats[id].Processed++
		result, perr := info.Process(e.sm, e, msg)
		for _, o := range e.settings.observers {
			o.Processed(e.settings.name, info.Name, result)
		}
		if perr != nil {
			err = errors.Wrapf(perr, "state %s", info.Name)
			break
		}
		if result == Handled {
			break
		}
		id = info.Parent
	}
	if id == NoState {
		e.unhandled++
		e.settings.logger.Debugw("message not handled",
			"machine", e.settings.name, "state", e.registry.Name(e.current))
	}

	dest := e.pending
	e.pending = NoState
	if dest == NoState || dest == e.current {
		return false, err
	}
	e.switchTo(dest)
	return true, err
}

// SetDestination records id as the state to switch to once the current walk
// ends. It does not end the walk, so a handler that must still let its
// ancestors see the message returns NotHandled after calling it. The slot
// holds one destination; a later call in the same walk replaces an earlier
// one.
//
// A handler must never call an ancestor's handler itself to get the same
// effect: that duplicates the ancestor's path outside the walk and skips the
// fallthrough when the ancestor changes. Decline with NotHandled instead.
func (e *Executor[SM, M]) SetDestination(id StateID) {
	if !e.registry.IsLeaf(id) {
		panic(errors.AssertionFailedf("state %q is not a valid transition target", e.registry.Name(id)))
	}
	e.pending = id
}

// TransitionTo records id as the destination and returns Handled, ending the
// walk at the calling state.
func (e *Executor[SM, M]) TransitionTo(id StateID) Result {
	e.SetDestination(id)
	return Handled
}

// Destination returns the destination recorded so far in the current walk.
func (e *Executor[SM, M]) Destination() (StateID, bool) {
	return e.pending, e.pending != NoState
}

// Defer queues msg for redelivery after the next dispatch that switches state.
func (e *Executor[SM, M]) Defer(msg M) {
	e.deferred = append(e.deferred, msg)
}

// Deferred returns the number of messages waiting for redelivery.
func (e *Executor[SM, M]) Deferred() int {
	return len(e.deferred)
}

// Current returns the current leaf state.
func (e *Executor[SM, M]) Current() StateID {
	return e.current
}

// Previous returns the leaf state active before the last switch.
func (e *Executor[SM, M]) Previous() StateID {
	return e.previous
}

// CurrentName returns the name of the current leaf state.
func (e *Executor[SM, M]) CurrentName() string {
	return e.registry.Name(e.current)
}

// Active reports whether id is the current state or one of its ancestors.
func (e *Executor[SM, M]) Active(id StateID) bool {
	e.registry.State(id)
	return e.active[id]
}

// Registry returns the state table.
func (e *Executor[SM, M]) Registry() *Registry[SM, M] {
	return e.registry
}

// SM returns the domain value.
func (e *Executor[SM, M]) SM() SM {
	return e.sm
}

// Name returns the machine name.
func (e *Executor[SM, M]) Name() string {
	return e.settings.name
}
