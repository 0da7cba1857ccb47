package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/production"
)

type options struct {
	configPath  string
	red         time.Duration
	yellow      time.Duration
	green       time.Duration
	start       trafficlight.Color
	poll        time.Duration
	count       int
	metricsAddr string
	dot         string
	logLevel    string
	logFormat   string
	json        bool
}

func registerFlags(root *cobra.Command, opts *options) {
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML or JSON configuration file; flags override its values")
	pf.DurationVar(&opts.red, "red", trafficlight.DefaultRedDuration, "red dwell time")
	pf.DurationVar(&opts.yellow, "yellow", trafficlight.DefaultYellowDuration, "yellow dwell time")
	pf.DurationVar(&opts.green, "green", trafficlight.DefaultGreenDuration, "green dwell time")
	pf.Var(&opts.start, "start", "start color: red, yellow or green")
	pf.DurationVar(&opts.poll, "poll", trafficlight.DefaultPollInterval, "interval between color requests")
	pf.IntVar(&opts.count, "count", 0, "stop after this many polls; 0 runs until interrupted")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	pf.StringVar(&opts.logLevel, "log-level", "INFO", "DEBUG, INFO, WARN or ERROR; LOGGING_LEVEL overrides")
	pf.StringVar(&opts.logFormat, "log-format", "CONSOLE", "CONSOLE or JSON; LOGGING_FORMAT overrides")

	root.Flags().StringVar(&opts.dot, "dot", "", "write a Graphviz rendering of the final state to this file")
}

// effectiveConfig loads the configuration file, if any, and applies every
// flag set on the command line on top of it.
func effectiveConfig(cmd *cobra.Command, opts *options) (trafficlight.Config, error) {
	cfg := trafficlight.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := production.LoadConfig(opts.configPath)
		if err != nil {
			return trafficlight.Config{}, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("red") {
		cfg.Durations.Red = trafficlight.Duration(opts.red)
	}
	if f.Changed("yellow") {
		cfg.Durations.Yellow = trafficlight.Duration(opts.yellow)
	}
	if f.Changed("green") {
		cfg.Durations.Green = trafficlight.Duration(opts.green)
	}
	if f.Changed("start") {
		cfg.StartColor = opts.start
	}
	if f.Changed("poll") {
		cfg.PollInterval = trafficlight.Duration(opts.poll)
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	return cfg, cfg.Validate()
}
