// Package primitives provides the small shared building blocks of the
// controller: the wall-clock source used to compute and check color
// deadlines.
//
// Invariants:
// - Clock implementations are safe for concurrent use
// - ManualClock never moves on its own; tests advance it explicitly
package primitives
