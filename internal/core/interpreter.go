package core

import "slices"

// transitionPath returns the states to exit, innermost first, and the states
// to enter, outermost first, when switching from the current leaf to dest.
// Both lists stop below the nearest ancestor of dest that is still active.
func (e *Executor[SM, M]) transitionPath(dest StateID) (exits, enters []StateID) {
	enters = append(enters, dest)
	sentinel := e.registry.Parent(dest)
	for sentinel != NoState && !e.active[sentinel] {
		enters = append(enters, sentinel)
		sentinel = e.registry.Parent(sentinel)
	}
	slices.Reverse(enters)

	for id := e.current; id != NoState && id != sentinel; id = e.registry.Parent(id) {
		exits = append(exits, id)
	}
	return exits, enters
}

// switchTo performs the state switch to dest.
func (e *Executor[SM, M]) switchTo(dest StateID) {
	exits, enters := e.transitionPath(dest)
	for _, id := range exits {
		e.exit(id)
	}
	for _, id := range enters {
		e.enter(id)
	}

	e.previous, e.current = e.current, dest

	t := Transition{
		Machine:  e.settings.name,
		From:     e.previous,
		To:       e.current,
		FromName: e.registry.Name(e.previous),
		ToName:   e.registry.Name(e.current),
	}
	e.settings.logger.Debugw("transition", "machine", t.Machine, "from", t.FromName, "to", t.ToName)
	for _, o := range e.settings.observers {
		o.Transitioned(t)
	}
}

func (e *Executor[SM, M]) enter(id StateID) {
	info := e.registry.State(id)
	e.stats[id].Entered++
	if info.Enter != nil {
		info.Enter(e.sm)
	}
	e.active[id] = true
}

func (e *Executor[SM, M]) exit(id StateID) {
	info := e.registry.State(id)
	e.stats[id].Exited++
	if info.Exit != nil {
		info.Exit(e.sm)
	}
	e.active[id] = false
}
