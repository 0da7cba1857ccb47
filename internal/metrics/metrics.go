// Package metrics exports executor activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/core"
)

const (
	namespace = "trafficlight"
	subsystem = "core"
)

// Error kinds used as the "kind" label of dispatch_errors_total.
const (
	KindNoReplySink     = "no_reply_sink"
	KindReplyDropped    = "reply_dropped"
	KindReplySinkClosed = "reply_sink_closed"
	KindInvalidColor    = "invalid_color"
	KindOther           = "other"
)

// Recorder implements core.Observer and owns a private registry, so several
// recorders can live in one process and in tests.
type Recorder struct {
	registry *prometheus.Registry

	steps       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	active      *prometheus.GaugeVec
	failures    *prometheus.CounterVec
}

var (
	_ core.Observer      = (*Recorder)(nil)
	_ core.StartObserver = (*Recorder)(nil)
)

// NewRecorder creates a recorder. The registry also carries the Go runtime
// and process collectors when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dispatch_steps_total",
				Help:      "Handler invocations during dispatch walks, by state and result",
			},
			[]string{"machine", "state", "result"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transitions_total",
				Help:      "Completed state switches",
			},
			[]string{"machine", "from", "to"},
		),
		active: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "state_active",
				Help:      "1 for the current leaf state, 0 for leaf states left",
			},
			[]string{"machine", "state"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dispatch_errors_total",
				Help:      "Dispatches that returned an error, by kind",
			},
			[]string{"machine", "kind"},
		),
	}
}

// Processed implements core.Observer.
func (r *Recorder) Processed(machine, state string, result core.Result) {
	r.steps.WithLabelValues(machine, state, result.String()).Inc()
}

// Started implements core.StartObserver. It marks the initial state active so
// the gauge has a series before the first switch.
func (r *Recorder) Started(machine string, _ core.StateID, name string) {
	r.active.WithLabelValues(machine, name).Set(1)
}

// Transitioned implements core.Observer.
func (r *Recorder) Transitioned(t core.Transition) {
	r.transitions.WithLabelValues(t.Machine, t.FromName, t.ToName).Inc()
	r.active.WithLabelValues(t.Machine, t.FromName).Set(0)
	r.active.WithLabelValues(t.Machine, t.ToName).Set(1)
}

// DispatchFailed counts a failed dispatch of machine.
func (r *Recorder) DispatchFailed(machine string, err error) {
	if err == nil {
		return
	}
	r.failures.WithLabelValues(machine, Kind(err)).Inc()
}

// Kind classifies a dispatch error for the kind label.
func Kind(err error) string {
	switch {
	case errors.Is(err, trafficlight.ErrNoReplySink):
		return KindNoReplySink
	case errors.Is(err, trafficlight.ErrReplyDropped):
		return KindReplyDropped
	case errors.Is(err, trafficlight.ErrReplySinkClosed):
		return KindReplySinkClosed
	case errors.Is(err, trafficlight.ErrInvalidColor):
		return KindInvalidColor
	default:
		return KindOther
	}
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
