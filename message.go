package trafficlight

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Message is anything that can be dispatched into a Machine: Initialize,
// GetColor or GetColorResponse.
type Message interface {
	messageName() string
}

// Reply delivery failures. They are returned from Machine.Dispatch; the
// machine state is unaffected.
var (
	ErrNoReplySink     = errors.New("GetColor has no reply channel")
	ErrReplyDropped    = errors.New("reply channel full, response dropped")
	ErrReplySinkClosed = errors.New("reply channel closed")
)

// Initialize reconfigures every dwell time and switches to Color at once,
// discarding whatever remains of the current dwell.
type Initialize struct {
	Color  Color
	Red    time.Duration
	Yellow time.Duration
	Green  time.Duration
}

func (Initialize) messageName() string { return "Initialize" }

// Durations returns the dwell times carried by the message.
func (m Initialize) Durations() Durations {
	return Durations{
		Red:    m.Red,
		Yellow: m.Yellow,
		Green:  m.Green,
	}
}

// Validate rejects unknown colors and negative durations.
func (m Initialize) Validate() error {
	if !m.Color.Valid() {
		return errors.Wrapf(ErrInvalidColor, "%d", int(m.Color))
	}
	return m.Durations().Validate()
}

// GetColor asks for the current color. Exactly one GetColorResponse is
// sent on Reply before Dispatch returns. The send never blocks, so Reply
// needs room for the response; NewGetColor builds a suitable one.
type GetColor struct {
	Reply chan<- GetColorResponse
}

func (GetColor) messageName() string { return "GetColor" }

// NewGetColor returns a request with a single-use buffered reply channel.
func NewGetColor() (GetColor, <-chan GetColorResponse) {
	ch := make(chan GetColorResponse, 1)
	return GetColor{Reply: ch}, ch
}

// respond delivers the response without blocking.
func (m GetColor) respond(c Color) (err error) {
	if m.Reply == nil {
		return ErrNoReplySink
	}
	defer func() {
		// A send on a closed channel is the only panic possible here.
		if r := recover(); r != nil {
			err = ErrReplySinkClosed
		}
	}()
	select {
	case m.Reply <- GetColorResponse{Color: c}:
		return nil
	default:
		return ErrReplyDropped
	}
}

// GetColorResponse carries the answer to GetColor. It is only ever sent by
// the machine; dispatching one into the machine is logged and ignored.
type GetColorResponse struct {
	Color Color
}

func (GetColorResponse) messageName() string { return "GetColorResponse" }

// MessageName returns the type name of msg for logs and metrics.
func MessageName(msg Message) string {
	if msg == nil {
		return "nil"
	}
	return msg.messageName()
}
