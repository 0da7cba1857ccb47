package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test hierarchy:
//
//	root
//	├── a
//	│   ├── a1
//	│   └── a2
//	└── b
const (
	sRoot StateID = iota
	sA
	sA1
	sA2
	sB
)

type reaction func(ex *Executor[*trace, string], msg string) (Result, error)

type trace struct {
	log   []string
	react map[StateID]reaction
}

func (tr *trace) record(s string) {
	tr.log = append(tr.log, s)
}

func traceState(id StateID, name string, parent StateID) StateInfo[*trace, string] {
	return NewState[*trace, string](id, name, func(tr *trace, ex *Executor[*trace, string], msg string) (Result, error) {
		tr.record(name + ":" + msg)
		if fn, ok := tr.react[id]; ok {
			return fn(ex, msg)
		}
		return NotHandled, nil
	}).
		WithParent(parent).
		OnEnter(func(tr *trace) { tr.record("enter:" + name) }).
		OnExit(func(tr *trace) { tr.record("exit:" + name) })
}

func newTraceRegistry(t testing.TB) *Registry[*trace, string] {
	t.Helper()
	r, err := NewRegistry(
		traceState(sRoot, "root", NoState),
		traceState(sA, "a", sRoot),
		traceState(sA1, "a1", sA),
		traceState(sA2, "a2", sA),
		traceState(sB, "b", sRoot),
	)
	require.NoError(t, err)
	return r
}

func newTraceExecutor(t testing.TB, initial StateID, opts ...Option) (*Executor[*trace, string], *trace) {
	t.Helper()
	tr := &trace{react: map[StateID]reaction{}}
	ex, err := NewExecutor(tr, newTraceRegistry(t), initial, opts...)
	require.NoError(t, err)
	require.NoError(t, ex.Start())
	tr.log = nil
	return ex, tr
}

func TestExecutor_StartEntersAncestorsOutermostFirst(t *testing.T) {
	tr := &trace{}
	ex, err := NewExecutor(tr, newTraceRegistry(t), sA1)
	require.NoError(t, err)
	require.NoError(t, ex.Start())

	assert.Equal(t, []string{"enter:root", "enter:a", "enter:a1"}, tr.log)
	assert.True(t, ex.Active(sRoot))
	assert.True(t, ex.Active(sA))
	assert.True(t, ex.Active(sA1))
	assert.False(t, ex.Active(sB))
	assert.Equal(t, sA1, ex.Current())
	assert.Equal(t, "a1", ex.CurrentName())

	require.ErrorIs(t, ex.Start(), ErrAlreadyStarted)
}

func TestExecutor_DispatchBeforeStart(t *testing.T) {
	ex, err := NewExecutor(&trace{}, newTraceRegistry(t), sB)
	require.NoError(t, err)
	require.ErrorIs(t, ex.Dispatch("x"), ErrNotStarted)
}

func TestNewExecutor_RejectsBadInitial(t *testing.T) {
	r := newTraceRegistry(t)

	_, err := NewExecutor(&trace{}, r, sA)
	require.Error(t, err)

	_, err = NewExecutor(&trace{}, r, StateID(42))
	require.Error(t, err)

	_, err = NewExecutor[*trace, string](&trace{}, nil, sA1)
	require.Error(t, err)
}

func TestExecutor_NotHandledWalksToRoot(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)

	require.NoError(t, ex.Dispatch("x"))

	assert.Equal(t, []string{"a1:x", "a:x", "root:x"}, tr.log)
	assert.Equal(t, uint64(1), ex.Unhandled())
	assert.Equal(t, sA1, ex.Current())
}

func TestExecutor_HandledStopsWalk(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA] = func(*Executor[*trace, string], string) (Result, error) {
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("x"))

	assert.Equal(t, []string{"a1:x", "a:x"}, tr.log)
	assert.Zero(t, ex.Unhandled())
}

func TestExecutor_SetDestinationKeepsWalking(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(sB)
		return NotHandled, nil
	}
	tr.react[sRoot] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		dest, ok := ex.Destination()
		require.True(t, ok)
		require.Equal(t, sB, dest)
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("x"))

	assert.Equal(t, []string{"a1:x", "a:x", "root:x", "exit:a1", "exit:a", "enter:b"}, tr.log)
	assert.Equal(t, sB, ex.Current())
	assert.Equal(t, sA1, ex.Previous())
	assert.False(t, ex.Active(sA))
	assert.True(t, ex.Active(sRoot))

	_, pending := ex.Destination()
	assert.False(t, pending, "slot must be cleared after the switch")
}

func TestExecutor_TransitionToEndsWalk(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		return ex.TransitionTo(sA2), nil
	}

	require.NoError(t, ex.Dispatch("x"))

	// a stays active: only the sibling leaf is exited and entered.
	assert.Equal(t, []string{"a1:x", "exit:a1", "enter:a2"}, tr.log)
	assert.Equal(t, sA2, ex.Current())
}

func TestExecutor_EnterNestedFromSibling(t *testing.T) {
	ex, tr := newTraceExecutor(t, sB)
	tr.react[sB] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		return ex.TransitionTo(sA2), nil
	}

	require.NoError(t, ex.Dispatch("x"))

	assert.Equal(t, []string{"b:x", "exit:b", "enter:a", "enter:a2"}, tr.log)
	assert.True(t, ex.Active(sA))
}

func TestExecutor_LastDestinationWins(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(sB)
		return NotHandled, nil
	}
	tr.react[sA] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(sA2)
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("x"))
	assert.Equal(t, sA2, ex.Current())
}

func TestExecutor_DestinationEqualToCurrentIsIgnored(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		return ex.TransitionTo(sA1), nil
	}

	require.NoError(t, ex.Dispatch("x"))

	assert.Equal(t, []string{"a1:x"}, tr.log)
	assert.Equal(t, uint64(1), ex.Stats(sA1).Entered)
}

func TestExecutor_SlotClearedBetweenDispatches(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	calls := 0
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		calls++
		_, pending := ex.Destination()
		assert.False(t, pending)
		if calls == 1 {
			ex.SetDestination(sA1)
		}
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("x"))
	require.NoError(t, ex.Dispatch("y"))
	assert.Equal(t, 2, calls)
}

func TestExecutor_HandlerErrorStopsWalkButSwitches(t *testing.T) {
	boom := errors.New("boom")
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(sA2)
		return NotHandled, boom
	}

	err := ex.Dispatch("x")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "state a1")

	assert.Equal(t, []string{"a1:x", "exit:a1", "enter:a2"}, tr.log)
	assert.Equal(t, sA2, ex.Current())
}

func TestExecutor_NonLeafDestinationPanics(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(sA)
		return Handled, nil
	}
	require.Panics(t, func() { _ = ex.Dispatch("x") })
}

func TestExecutor_UnregisteredDestinationPanics(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(StateID(99))
		return Handled, nil
	}
	require.Panics(t, func() { _ = ex.Dispatch("x") })
}

func TestExecutor_ReentrantDispatchPanics(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		return Handled, ex.Dispatch("inner")
	}
	require.Panics(t, func() { _ = ex.Dispatch("outer") })
}

func TestExecutor_DeferredRedeliveredAfterSwitch(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], msg string) (Result, error) {
		switch msg {
		case "later":
			ex.Defer(msg)
			return Handled, nil
		case "go":
			return ex.TransitionTo(sB), nil
		}
		return NotHandled, nil
	}
	tr.react[sB] = func(*Executor[*trace, string], string) (Result, error) {
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("later"))
	require.NoError(t, ex.Dispatch("other"))
	assert.Equal(t, 1, ex.Deferred(), "no switch, message stays deferred")

	tr.log = nil
	require.NoError(t, ex.Dispatch("go"))

	assert.Equal(t, []string{"a1:go", "exit:a1", "exit:a", "enter:b", "b:later"}, tr.log)
	assert.Zero(t, ex.Deferred())
}

func TestExecutor_DeferredStopsWithoutFurtherSwitch(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], msg string) (Result, error) {
		if msg == "go" {
			return ex.TransitionTo(sA2), nil
		}
		ex.Defer(msg)
		return Handled, nil
	}
	tr.react[sA2] = func(ex *Executor[*trace, string], msg string) (Result, error) {
		// Still not interested: defer again. Without another switch it
		// must not be redelivered in this Dispatch.
		ex.Defer(msg)
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("m"))
	require.NoError(t, ex.Dispatch("go"))

	assert.Equal(t, 1, ex.Deferred())
	assert.Equal(t, uint64(1), ex.Stats(sA2).Processed)
}

func TestExecutor_Stats(t *testing.T) {
	ex, tr := newTraceExecutor(t, sA1)
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		return ex.TransitionTo(sA2), nil
	}
	tr.react[sA2] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		return ex.TransitionTo(sA1), nil
	}

	for i := 0; i < 4; i++ {
		require.NoError(t, ex.Dispatch("tick"))
	}

	assert.Equal(t, Stats{Entered: 3, Processed: 2, Exited: 2}, ex.Stats(sA1))
	assert.Equal(t, Stats{Entered: 2, Processed: 2, Exited: 2}, ex.Stats(sA2))
	assert.Equal(t, Stats{Entered: 1}, ex.Stats(sA))

	views := ex.Snapshot()
	require.Len(t, views, 5)
	assert.Equal(t, "a1", views[sA1].Name)
	assert.True(t, views[sA1].Active)
	assert.True(t, views[sA1].Leaf)
	assert.False(t, views[sA].Leaf)
	assert.Equal(t, sRoot, views[sA].Parent)
}

type recordingObserver struct {
	started     []string
	processed   []string
	transitions []Transition
}

func (o *recordingObserver) Started(machine string, _ StateID, name string) {
	o.started = append(o.started, machine+"/"+name)
}

func (o *recordingObserver) Processed(machine, state string, result Result) {
	o.processed = append(o.processed, machine+"/"+state+"="+result.String())
}

func (o *recordingObserver) Transitioned(t Transition) {
	o.transitions = append(o.transitions, t)
}

func TestExecutor_Observers(t *testing.T) {
	obs := &recordingObserver{}
	ex, tr := newTraceExecutor(t, sA1, WithName("m1"), WithObserver(obs), WithObserver(nil))
	tr.react[sA1] = func(ex *Executor[*trace, string], _ string) (Result, error) {
		ex.SetDestination(sB)
		return NotHandled, nil
	}
	tr.react[sA] = func(*Executor[*trace, string], string) (Result, error) {
		return Handled, nil
	}

	require.NoError(t, ex.Dispatch("x"))

	assert.Equal(t, []string{"m1/a1=not_handled", "m1/a=handled"}, obs.processed)
	require.Len(t, obs.transitions, 1)
	assert.Equal(t, Transition{Machine: "m1", From: sA1, To: sB, FromName: "a1", ToName: "b"}, obs.transitions[0])
	assert.Equal(t, "m1", ex.Name())
}

func TestExecutor_StartNotifiesStartObservers(t *testing.T) {
	obs := &recordingObserver{}
	plain := &plainObserver{}
	ex, _ := newTraceExecutor(t, sA2, WithName("m1"), WithObserver(obs), WithObserver(plain))

	assert.Equal(t, []string{"m1/a2"}, obs.started)
	assert.Empty(t, obs.transitions)

	require.ErrorIs(t, ex.Start(), ErrAlreadyStarted)
	assert.Len(t, obs.started, 1)
}

// plainObserver implements only Observer.
type plainObserver struct{}

func (plainObserver) Processed(string, string, Result) {}
func (plainObserver) Transitioned(Transition)          {}
