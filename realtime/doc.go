// Package realtime runs a traffic-light machine behind a mailbox.
//
// A trafficlight.Machine must see exactly one Dispatch at a time. Runtime
// owns the machine in a single goroutine and serializes every message sent
// to it, from any number of goroutines, through one bounded channel:
//
//	m, _ := trafficlight.New(trafficlight.DefaultConfig())
//	rt := realtime.NewRuntime(m, realtime.Config{})
//	if err := rt.Start(ctx); err != nil { ... }
//	defer rt.Stop()
//	c, err := rt.Color(ctx)
//
// # Ordering
//
// Messages are dispatched in the order they entered the mailbox. Each one is
// stamped with a sequence number on arrival, which appears in the logs.
// Send returns only after the message has been dispatched, so a caller that
// sends A and then B observes A's effects before B is dispatched.
//
// # Lifecycle
//
// A Runtime is either stopped or running. Start and Stop move between the two;
// sending to a stopped runtime fails with ErrNotRunning. Cancelling the
// context given to Start stops the runtime as well. Messages still queued
// when the runtime stops are answered with ErrNotRunning.
//
// # Polling
//
// Colors only change when a message arrives, so something has to keep asking.
// Poller sends GetColor at a fixed interval and reports every answer.
package realtime
