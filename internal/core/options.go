// Options for configuring Executor instances.
package core

import "go.uber.org/zap"

// Observer receives dispatch and transition notifications. Calls happen on
// the dispatching goroutine, inside Dispatch; implementations must not
// dispatch into the same executor.
type Observer interface {
	// Processed is called after each handler invocation during a walk.
	Processed(machine, state string, result Result)
	// Transitioned is called after a state switch completes.
	Transitioned(t Transition)
}

// StartObserver is an optional extension of Observer. Start calls Started
// once, after the initial state and its ancestors were entered.
type StartObserver interface {
	Started(machine string, state StateID, name string)
}

// Transition describes a completed state switch.
type Transition struct {
	Machine  string
	From     StateID
	To       StateID
	FromName string
	ToName   string
}

type settings struct {
	name      string
	logger    *zap.SugaredLogger
	observers []Observer
}

// Option applies configuration to an Executor via functional options pattern.
type Option func(*settings)

// WithName sets the machine name reported to observers and logs.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger configures the Executor's logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver adds an Observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}
