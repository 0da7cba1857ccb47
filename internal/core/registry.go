// Package core defines the state registry: the fixed table of state
// descriptors that the Executor walks.
package core

import (
	"github.com/cockroachdb/errors"
)

// StateID identifies a state. IDs are dense indices into the registry table.
type StateID int

// NoState marks the absence of a state: a root's parent, or an empty
// pending-transition slot.
const NoState StateID = -1

// Result is the outcome a state handler reports for a message.
type Result int

const (
	// NotHandled passes the message on to the parent state.
	NotHandled Result = iota
	// Handled stops the walk up the hierarchy.
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "not_handled"
}

// ProcessFunc handles a message on behalf of a state. It may call
// SetDestination on the executor regardless of the Result it returns.
type ProcessFunc[SM any, M any] func(sm SM, ex *Executor[SM, M], msg M) (Result, error)

// ActionFunc is an entry or exit action.
type ActionFunc[SM any] func(sm SM)

// StateInfo describes one state. Build it with NewState and the With/On
// helpers, then hand it to NewRegistry.
type StateInfo[SM any, M any] struct {
	ID      StateID
	Name    string
	Parent  StateID
	Enter   ActionFunc[SM]
	Exit    ActionFunc[SM]
	Process ProcessFunc[SM, M]
}

// NewState returns a root state descriptor with the given handler.
func NewState[SM any, M any](id StateID, name string, process ProcessFunc[SM, M]) StateInfo[SM, M] {
	return StateInfo[SM, M]{
		ID:      id,
		Name:    name,
		Parent:  NoState,
		Process: process,
	}
}

// WithParent sets the parent state.
func (s StateInfo[SM, M]) WithParent(parent StateID) StateInfo[SM, M] {
	s.Parent = parent
	return s
}

// OnEnter sets the entry action.
func (s StateInfo[SM, M]) OnEnter(fn ActionFunc[SM]) StateInfo[SM, M] {
	s.Enter = fn
	return s
}

// OnExit sets the exit action.
func (s StateInfo[SM, M]) OnExit(fn ActionFunc[SM]) StateInfo[SM, M] {
	s.Exit = fn
	return s
}

// Registry is the immutable state table. Lookups are O(1) slice indexing.
type Registry[SM any, M any] struct {
	states   []StateInfo[SM, M]
	children [][]StateID
}

// NewRegistry validates the descriptors and builds the table. IDs must be
// unique and cover 0..len(infos)-1; every parent must be registered and the
// parent links must not form a cycle.
func NewRegistry[SM any, M any](infos ...StateInfo[SM, M]) (*Registry[SM, M], error) {
	if len(infos) == 0 {
		return nil, errors.New("no states provided")
	}
	n := len(infos)
	r := &Registry[SM, M]{
		states:   make([]StateInfo[SM, M], n),
		children: make([][]StateID, n),
	}
	seen := make([]bool, n)
	for _, info := range infos {
		if info.ID < 0 || int(info.ID) >= n {
			return nil, errors.Newf("state %q has id %d outside [0, %d)", info.Name, info.ID, n)
		}
		if seen[info.ID] {
			return nil, errors.Newf("duplicate state id %d (%q)", info.ID, info.Name)
		}
		if info.Process == nil {
			return nil, errors.Newf("state %q has no handler", info.Name)
		}
		if info.Name == "" {
			return nil, errors.Newf("state %d has no name", info.ID)
		}
		seen[info.ID] = true
		r.states[info.ID] = info
	}

	for _, s := range r.states {
		if s.Parent == NoState {
			continue
		}
		if s.Parent < 0 || int(s.Parent) >= n {
			return nil, errors.Newf("state %q has unknown parent %d", s.Name, s.Parent)
		}
		r.children[s.Parent] = append(r.children[s.Parent], s.ID)
	}

	if r.hasCycle() {
		return nil, errors.New("cycle detected in state hierarchy")
	}
	return r, nil
}

// hasCycle peels leaves off the hierarchy until none remain (Kahn's
// algorithm). Any state never peeled sits on a parent cycle.
func (r *Registry[SM, M]) hasCycle() bool {
	remaining := make([]int, len(r.states))
	var leaves []StateID
	for id := range r.states {
		remaining[id] = len(r.children[id])
		if remaining[id] == 0 {
			leaves = append(leaves, StateID(id))
		}
	}

	visited := 0
	for len(leaves) > 0 {
		leaf := leaves[len(leaves)-1]
		leaves = leaves[:len(leaves)-1]
		visited++

		parent := r.states[leaf].Parent
		if parent == NoState {
			continue
		}
		remaining[parent]--
		if remaining[parent] == 0 {
			leaves = append(leaves, parent)
		}
	}
	return visited != len(r.states)
}

// State returns the descriptor for id. An unregistered id is a programming
// error and panics.
func (r *Registry[SM, M]) State(id StateID) *StateInfo[SM, M] {
	if id < 0 || int(id) >= len(r.states) {
		panic(errors.AssertionFailedf("unregistered state id %d", id))
	}
	return &r.states[id]
}

// Len returns the number of registered states.
func (r *Registry[SM, M]) Len() int {
	return len(r.states)
}

// Name returns the name of id.
func (r *Registry[SM, M]) Name(id StateID) string {
	return r.State(id).Name
}

// Parent returns the parent of id, or NoState for a root.
func (r *Registry[SM, M]) Parent(id StateID) StateID {
	return r.State(id).Parent
}

// Children returns the direct children of id.
func (r *Registry[SM, M]) Children(id StateID) []StateID {
	r.State(id)
	return append([]StateID(nil), r.children[id]...)
}

// IsLeaf reports whether id has no children. Only leaves are valid
// transition targets.
func (r *Registry[SM, M]) IsLeaf(id StateID) bool {
	r.State(id)
	return len(r.children[id]) == 0
}

// Ancestors returns id followed by each of its ancestors up to the root.
func (r *Registry[SM, M]) Ancestors(id StateID) []StateID {
	var chain []StateID
	for cur := id; cur != NoState; cur = r.Parent(cur) {
		chain = append(chain, cur)
	}
	return chain
}

// Lookup finds a state by name.
func (r *Registry[SM, M]) Lookup(name string) (StateID, bool) {
	for _, s := range r.states {
		if s.Name == name {
			return s.ID, true
		}
	}
	return NoState, false
}
