package extensibility

import (
	"time"

	"go.uber.org/zap"

	"github.com/comalice/trafficlight"
)

// Dispatcher is the single-method surface of a machine.
type Dispatcher interface {
	Dispatch(msg trafficlight.Message) error
}

// LoggingDispatcher wraps a Dispatcher and logs around every dispatch.
type LoggingDispatcher struct {
	inner Dispatcher
	log   *zap.SugaredLogger
}

// NewLoggingDispatcher creates a LoggingDispatcher wrapping inner.
func NewLoggingDispatcher(inner Dispatcher, log *zap.SugaredLogger) *LoggingDispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LoggingDispatcher{inner: inner, log: log}
}

// Dispatch logs before and after delegating to the inner dispatcher.
func (d *LoggingDispatcher) Dispatch(msg trafficlight.Message) error {
	name := trafficlight.MessageName(msg)
	d.log.Debugw("dispatching", "message", name)
	start := time.Now()
	err := d.inner.Dispatch(msg)
	d.log.Debugw("dispatch completed", "message", name, "took", time.Since(start), "error", err)
	return err
}
