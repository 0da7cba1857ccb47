package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/comalice/trafficlight"
)

var (
	ErrNotRunning     = errors.New("runtime not running")
	ErrAlreadyRunning = errors.New("runtime already running")
	// ErrNoReply means a GetColor dispatch completed without a response,
	// which the machine guarantees never happens.
	ErrNoReply = errors.New("no color reply")
)

// Lifecycle states and events.
const (
	StateStopped = "stopped"
	StateRunning = "running"

	eventStart = "start"
	eventStop  = "stop"
)

// DefaultMailboxSize is the mailbox capacity used when Config leaves it zero.
const DefaultMailboxSize = 64

// Dispatcher is what a Runtime drives. *trafficlight.Machine implements it.
type Dispatcher interface {
	Dispatch(msg trafficlight.Message) error
}

// Source is anything producing messages, see package extensibility.
type Source interface {
	Messages() <-chan trafficlight.Message
}

// Config configures the runtime.
type Config struct {
	MailboxSize int                // Mailbox capacity (default: DefaultMailboxSize)
	Logger      *zap.SugaredLogger // Defaults to a no-op logger
	// OnError is called on the dispatch goroutine for every failed dispatch,
	// for example to count it.
	OnError func(err error)
}

// Runtime serializes dispatches into one machine.
type Runtime struct {
	machine Dispatcher
	log     *zap.SugaredLogger
	onError func(error)

	mailbox chan envelope
	seq     atomic.Uint64

	// mu guards lifecycle and cancel. Senders hold it shared while they
	// enqueue, so once Stop holds it no new message can slip in.
	mu        sync.RWMutex
	lifecycle *fsm.FSM
	cancel    context.CancelFunc
	loopDone  <-chan struct{}
	stopped   chan struct{}
}

// NewRuntime creates a stopped runtime around machine.
func NewRuntime(machine Dispatcher, cfg Config) *Runtime {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = DefaultMailboxSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	rt := &Runtime{
		machine: machine,
		log:     cfg.Logger,
		onError: cfg.OnError,
		mailbox: make(chan envelope, cfg.MailboxSize),
	}
	rt.lifecycle = fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: eventStart, Src: []string{StateStopped}, Dst: StateRunning},
			{Name: eventStop, Src: []string{StateRunning}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				rt.log.Debugw("runtime lifecycle", "from", e.Src, "to", e.Dst)
			},
		},
	)
	return rt
}

// Start launches the dispatch goroutine. It runs until Stop is called or ctx
// is cancelled. If the previous run is still finishing its last dispatch,
// Start waits for it, so two loops never share the machine or the mailbox.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for prev := rt.stopped; prev != nil && rt.lifecycle.Is(StateStopped) && !isClosed(prev); prev = rt.stopped {
		// The old loop takes mu in shutdown.
		rt.mu.Unlock()
		select {
		case <-prev:
			rt.mu.Lock()
		case <-ctx.Done():
			rt.mu.Lock()
			return ctx.Err()
		}
	}

	if err := rt.lifecycle.Event(ctx, eventStart); err != nil {
		if errors.As(err, new(fsm.InvalidEventError)) {
			return ErrAlreadyRunning
		}
		return errors.Wrap(err, "starting runtime")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	rt.loopDone = loopCtx.Done()
	rt.stopped = make(chan struct{})
	go rt.loop(loopCtx, rt.stopped)
	return nil
}

// Stop halts the dispatch goroutine and waits for it to exit. Queued
// messages are answered with ErrNotRunning.
func (rt *Runtime) Stop() error {
	rt.mu.Lock()
	if err := rt.lifecycle.Event(context.Background(), eventStop); err != nil {
		rt.mu.Unlock()
		if errors.As(err, new(fsm.InvalidEventError)) {
			return ErrNotRunning
		}
		return errors.Wrap(err, "stopping runtime")
	}
	rt.cancel()
	stopped := rt.stopped
	rt.mu.Unlock()

	<-stopped
	return nil
}

// State returns StateRunning or StateStopped.
func (rt *Runtime) State() string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.lifecycle.Current()
}

// Running reports whether the runtime accepts messages.
func (rt *Runtime) Running() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.lifecycle.Is(StateRunning)
}

// Send enqueues msg and waits until it has been dispatched, returning the
// dispatch error. If ctx ends first, Send returns ctx.Err(); a message that
// was already queued is still dispatched.
func (rt *Runtime) Send(ctx context.Context, msg trafficlight.Message) error {
	env, err := rt.enqueue(ctx, msg)
	if err != nil {
		return err
	}
	select {
	case err := <-env.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Color asks the machine for its current color.
func (rt *Runtime) Color(ctx context.Context) (trafficlight.Color, error) {
	req, reply := trafficlight.NewGetColor()
	if err := rt.Send(ctx, req); err != nil {
		return trafficlight.Red, err
	}
	select {
	case resp := <-reply:
		return resp.Color, nil
	default:
		return trafficlight.Red, ErrNoReply
	}
}

// Pump forwards every message of src into the runtime until src closes its
// channel or ctx ends. Dispatch errors are logged and do not stop the pump.
func (rt *Runtime) Pump(ctx context.Context, src Source) error {
	msgs := src.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			err := rt.Send(ctx, msg)
			switch {
			case err == nil:
			case errors.Is(err, ErrNotRunning), errors.Is(err, context.Canceled):
				return err
			default:
				rt.log.Warnw("pumped message failed", "message", trafficlight.MessageName(msg), "error", err)
			}
		}
	}
}

func (rt *Runtime) enqueue(ctx context.Context, msg trafficlight.Message) (envelope, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if !rt.lifecycle.Is(StateRunning) {
		return envelope{}, ErrNotRunning
	}
	env := newEnvelope(msg, rt.seq.Add(1))
	select {
	case rt.mailbox <- env:
		return env, nil
	case <-rt.loopDone:
		return envelope{}, ErrNotRunning
	case <-ctx.Done():
		return envelope{}, ctx.Err()
	}
}

func (rt *Runtime) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-ctx.Done():
			rt.shutdown()
			return
		case env := <-rt.mailbox:
			if ctx.Err() != nil {
				env.done <- ErrNotRunning
				rt.shutdown()
				return
			}
			rt.dispatch(env)
		}
	}
}

func (rt *Runtime) dispatch(env envelope) {
	err := rt.machine.Dispatch(env.msg)
	if err != nil {
		rt.log.Warnw("dispatch failed",
			"seq", env.seq, "message", trafficlight.MessageName(env.msg), "error", err)
		if rt.onError != nil {
			rt.onError(err)
		}
	} else {
		rt.log.Debugw("dispatched", "seq", env.seq, "message", trafficlight.MessageName(env.msg))
	}
	env.done <- err
}

// shutdown marks the runtime stopped, if the context was cancelled from
// outside, and fails whatever is still queued.
func (rt *Runtime) shutdown() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.lifecycle.Is(StateRunning) {
		if err := rt.lifecycle.Event(context.Background(), eventStop); err != nil {
			rt.log.Errorw("stopping runtime", "error", err)
		}
	}
	for {
		select {
		case env := <-rt.mailbox:
			env.done <- ErrNotRunning
		default:
			return
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
