// Introspection helpers for Executor.

package core

// StateView is a read-only description of one state for visualizers and
// diagnostics.
type StateView struct {
	ID     StateID
	Name   string
	Parent StateID
	Leaf   bool
	Active bool
	Stats  Stats
}

// Stats returns the counters of id.
func (e *Executor[SM, M]) Stats(id StateID) Stats {
	e.registry.State(id)
	return e.stats[id]
}

// Unhandled returns how many messages went through the whole hierarchy
// without any state reporting Handled.
func (e *Executor[SM, M]) Unhandled() uint64 {
	return e.unhandled
}

// Snapshot describes every state in registry order.
func (e *Executor[SM, M]) Snapshot() []StateView {
	views := make([]StateView, e.registry.Len())
	for i := range views {
		id := StateID(i)
		info := e.registry.State(id)
		views[i] = StateView{
			ID:     id,
			Name:   info.Name,
			Parent: info.Parent,
			Leaf:   e.registry.IsLeaf(id),
			Active: e.active[id],
			Stats:  e.stats[id],
		}
	}
	return views
}
