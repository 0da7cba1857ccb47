package realtime

import (
	"github.com/comalice/trafficlight"
)

// envelope carries one message through the mailbox together with the
// channel its dispatch result is returned on.
type envelope struct {
	msg trafficlight.Message
	seq uint64
	// done is buffered so the dispatch loop never waits for a sender that
	// gave up.
	done chan error
}

func newEnvelope(msg trafficlight.Message, seq uint64) envelope {
	return envelope{
		msg:  msg,
		seq:  seq,
		done: make(chan error, 1),
	}
}
