package core

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is one open streaming connection as seen by the hub. The hub
// owns the subscriber for its whole lifetime: created on Subscribe,
// destroyed on Unsubscribe, idle timeout, or a failed write.
type Subscriber struct {
	ID         string
	ChannelTag string // empty means receive every channel

	// Events is the transport handle: the HTTP layer drains it into the
	// client connection. The hub never blocks on it.
	Events chan Event

	lastActive time.Time
	closed     bool
}

func newSubscriber(bufferSize int, channelTag string) *Subscriber {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Subscriber{
		ID:         uuid.NewString(),
		ChannelTag: channelTag,
		Events:     make(chan Event, bufferSize),
		lastActive: time.Now(),
	}
}

// wants reports whether an event for the given channel tag should reach
// this subscriber. Untagged events go to everyone; tagged events go to
// untagged subscribers and to subscribers with a matching filter.
func (s *Subscriber) wants(channelTag string) bool {
	if s.ChannelTag == "" || channelTag == "" {
		return true
	}
	return s.ChannelTag == channelTag
}

// push attempts a non-blocking write. A full or closed channel counts as
// a failed write; the hub must never stall behind one slow consumer.
func (s *Subscriber) push(ev Event) bool {
	if s.closed {
		return false
	}
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}
