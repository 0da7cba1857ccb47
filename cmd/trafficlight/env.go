package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/extensibility"
	"github.com/comalice/trafficlight/internal/logger"
	"github.com/comalice/trafficlight/internal/metrics"
	"github.com/comalice/trafficlight/internal/production"
	"github.com/comalice/trafficlight/realtime"
)

// environment is one wired controller: machine, runtime, metrics and
// transition publishing.
type environment struct {
	cfg         trafficlight.Config
	log         *zap.Logger
	recorder    *metrics.Recorder
	publisher   *production.ChannelPublisher
	transitions chan production.PublishedTransition
	machine     *trafficlight.Machine
	runtime     *realtime.Runtime
	server      *http.Server
}

func newEnvironment(cfg trafficlight.Config, logOut io.Writer) (*environment, error) {
	level, format := logger.Resolve(cfg.LogLevel, cfg.LogFormat)
	log := logger.NewTo(logOut, level, format)

	env := &environment{
		cfg:         cfg,
		log:         log,
		recorder:    metrics.NewRecorder(true),
		transitions: make(chan production.PublishedTransition, 64),
	}
	env.publisher = production.NewChannelPublisher(env.transitions, nil)

	m, err := trafficlight.New(cfg,
		trafficlight.WithLogger(logger.For(log, logger.ComponentLight)),
		trafficlight.WithObserver(env.recorder),
		trafficlight.WithObserver(env.publisher),
	)
	if err != nil {
		return nil, err
	}
	env.machine = m
	env.runtime = realtime.NewRuntime(
		extensibility.NewLoggingDispatcher(m, logger.For(log, logger.ComponentSource).With("machine", cfg.ID)),
		realtime.Config{
			Logger: logger.For(log, logger.ComponentRuntime).With("machine", cfg.ID),
			OnError: func(err error) {
				env.recorder.DispatchFailed(cfg.ID, err)
			},
		})
	return env, nil
}

// start starts the runtime and, if configured, the metrics endpoint.
func (e *environment) start(ctx context.Context) error {
	if err := e.runtime.Start(ctx); err != nil {
		return err
	}
	logger.For(e.log, logger.ComponentCLI).Infow("light started",
		"start", e.cfg.StartColor,
		"durations", e.cfg.Durations,
		"poll", e.cfg.PollInterval)
	if e.cfg.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.recorder.Handler())
	e.server = &http.Server{
		Addr:              e.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.For(e.log, logger.ComponentMetrics).Errorw("metrics server failed", "addr", e.cfg.MetricsAddr, "error", err)
		}
	}()
	logger.For(e.log, logger.ComponentMetrics).Infow("serving metrics", "addr", e.cfg.MetricsAddr)
	return nil
}

// stop stops the runtime and the metrics endpoint and closes the transition
// channel. The machine may be inspected afterwards.
func (e *environment) stop() {
	if err := e.runtime.Stop(); err != nil && !errors.Is(err, realtime.ErrNotRunning) {
		e.log.Warn("stopping runtime", zap.Error(err))
	}
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			e.log.Warn("stopping metrics server", zap.Error(err))
		}
	}
	_ = e.publisher.Close()
	_ = e.log.Sync()
}

// logTransitions logs every published transition until the channel closes.
func (e *environment) logTransitions(done chan<- struct{}) {
	defer close(done)
	l := logger.For(e.log, logger.ComponentLight)
	for t := range e.transitions {
		l.Infow("transition", "from", t.FromName, "to", t.ToName)
	}
}
