package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/comalice/trafficlight/internal/extensibility"
	"github.com/comalice/trafficlight/internal/logger"
	"github.com/comalice/trafficlight/internal/production"
	"github.com/comalice/trafficlight/realtime"
)

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "trafficlight",
		Short: "run a timed traffic-light controller",
		Long: `
  Runs one traffic light and asks it for its color every --poll interval,
  printing each answer. The light only notices an expired dwell when asked,
  so the poll interval bounds how late a color change can be seen.
`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLight(cmd, opts)
		},
	}
	registerFlags(root, opts)

	root.AddCommand(newWatchCmd(opts), newConfigCmd(opts))
	return root
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "feed the light from a ticker and print replies and transitions",
		Long: `
  Drives the light from a ticker source through the runtime mailbox. Every
  reply and every state switch is printed as it happens.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := effectiveConfig(cmd, opts)
			if err != nil {
				return err
			}
			format := production.FormatYAML
			if opts.json {
				format = production.FormatJSON
			}
			data, err := production.EncodeConfig(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of YAML")
	return cmd
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// interrupted reports whether err only says the run was cancelled.
func interrupted(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return ctx.Err() != nil && errors.Is(err, realtime.ErrNotRunning)
}

func runLight(cmd *cobra.Command, opts *options) error {
	cfg, err := effectiveConfig(cmd, opts)
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logged := make(chan struct{})
	go env.logTransitions(logged)

	ctx, cancel := signalContext(cmd)
	defer cancel()
	if err := env.start(ctx); err != nil {
		env.stop()
		<-logged
		return err
	}

	out := cmd.OutOrStdout()
	poller := realtime.NewPoller(env.runtime, realtime.PollerConfig{
		Interval: time.Duration(cfg.PollInterval),
		Count:    opts.count,
		Logger:   logger.For(env.log, logger.ComponentPoller),
	})
	runErr := poller.Run(ctx, func(o realtime.Observation) {
		fmt.Fprintf(out, "poll %d: %s\n", o.Poll, o.Color)
	})

	env.stop()
	<-logged
	if runErr != nil && !interrupted(ctx, runErr) {
		return runErr
	}
	if opts.dot != "" {
		dot := (&production.Visualizer{}).ExportDOT(env.machine.Snapshot(), production.LightEdges())
		if err := os.WriteFile(opts.dot, []byte(dot), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", opts.dot)
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, opts *options) error {
	cfg, err := effectiveConfig(cmd, opts)
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	if err := env.start(ctx); err != nil {
		env.stop()
		return err
	}

	src := extensibility.NewTickerSource(time.Duration(cfg.PollInterval), 16)
	pumped := make(chan error, 1)
	go func() { pumped <- env.runtime.Pump(ctx, src) }()

	out := cmd.OutOrStdout()
	var runErr error
	for n := 1; opts.count <= 0 || n <= opts.count; {
		select {
		case resp := <-src.Replies():
			fmt.Fprintf(out, "reply %d: %s\n", n, resp.Color)
			n++
			continue
		case t := <-env.transitions:
			fmt.Fprintf(out, "transition: %s -> %s\n", t.FromName, t.ToName)
			continue
		case runErr = <-pumped:
		case <-ctx.Done():
		}
		break
	}

	interrupt := ctx.Err() != nil
	src.Stop()
	cancel()
	env.stop()
	if runErr != nil && !interrupt && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
