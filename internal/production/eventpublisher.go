package production

import (
	"sync/atomic"
	"time"

	"github.com/comalice/trafficlight/internal/core"
)

// PublishedTransition is a state switch with the time it was observed.
type PublishedTransition struct {
	core.Transition
	At time.Time
}

// ChannelPublisher is a core.Observer that forwards every state switch to a
// channel. Publishing never blocks the dispatch: when the channel is full the
// transition is dropped and counted.
type ChannelPublisher struct {
	ch      chan<- PublishedTransition
	now     func() time.Time
	dropped atomic.Uint64
}

var _ core.Observer = (*ChannelPublisher)(nil)

// NewChannelPublisher creates a publisher writing to ch. now stamps each
// transition; nil means time.Now.
func NewChannelPublisher(ch chan<- PublishedTransition, now func() time.Time) *ChannelPublisher {
	if now == nil {
		now = time.Now
	}
	return &ChannelPublisher{ch: ch, now: now}
}

// Processed implements core.Observer; walks are not published.
func (p *ChannelPublisher) Processed(string, string, core.Result) {}

// Transitioned implements core.Observer.
func (p *ChannelPublisher) Transitioned(t core.Transition) {
	select {
	case p.ch <- PublishedTransition{Transition: t, At: p.now()}:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many transitions did not fit in the channel.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the channel. No transition may be published afterwards.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
