// Package extensibility holds pluggable pieces around a machine: message
// sources that feed a realtime.Runtime and dispatcher decorators.
package extensibility

import (
	"sync"
	"time"

	"github.com/comalice/trafficlight"
)

// ChannelSource is a message source backed by a caller-owned channel. The
// caller closes the channel to end the source.
type ChannelSource struct {
	ch chan trafficlight.Message
}

// NewChannelSource creates a ChannelSource reading ch. The channel should be
// buffered if the producer must not wait for dispatches.
func NewChannelSource(ch chan trafficlight.Message) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Messages returns the receive-only channel.
func (s *ChannelSource) Messages() <-chan trafficlight.Message {
	return s.ch
}

// TickerSource emits a GetColor request every interval. All requests share
// one reply channel, read through Replies; replies that find it full are
// dropped by the machine and reported as dispatch errors.
type TickerSource struct {
	ch      chan trafficlight.Message
	replies chan trafficlight.GetColorResponse
	ticker  *time.Ticker
	stop    chan struct{}
	once    sync.Once
}

// NewTickerSource starts emitting requests every d. replyBuffer sizes the
// reply channel; values below 1 mean 1.
func NewTickerSource(d time.Duration, replyBuffer int) *TickerSource {
	if replyBuffer < 1 {
		replyBuffer = 1
	}
	t := &TickerSource{
		ch:      make(chan trafficlight.Message, 10),
		replies: make(chan trafficlight.GetColorResponse, replyBuffer),
		ticker:  time.NewTicker(d),
		stop:    make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TickerSource) run() {
	req := trafficlight.GetColor{Reply: t.replies}
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- req:
			default:
				// The runtime is behind; skip this tick.
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Messages returns the request channel. It is closed by Stop.
func (t *TickerSource) Messages() <-chan trafficlight.Message {
	return t.ch
}

// Replies returns the channel every GetColorResponse is sent on. It stays
// open after Stop, since requests may still be in flight.
func (t *TickerSource) Replies() <-chan trafficlight.GetColorResponse {
	return t.replies
}

// Stop stops the ticker and closes the request channel. It is safe to call
// more than once.
func (t *TickerSource) Stop() {
	t.once.Do(func() { close(t.stop) })
}
