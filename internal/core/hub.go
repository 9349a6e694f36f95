package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub owns the live set of subscriber connections and fans published
// events out to them with best-effort, at-most-once-per-connection
// semantics. There is no per-subscriber queue or retry: a subscriber that
// is absent at publish time misses the event and reconciles through the
// backfill read on reconnect.
//
// The registry is the only shared mutable state; every add, remove, and
// iterate-for-publish runs under one mutex, so they never interleave
// partially. Per-subscriber writes are non-blocking channel sends, so a
// slow consumer cannot hold the lock hostage.
type Hub struct {
	mu   sync.Mutex
	subs map[string]*Subscriber
	log  *zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		subs: make(map[string]*Subscriber),
		log:  logger,
	}
}

// Subscribe registers a new connection and returns its handle. It always
// succeeds and never blocks; the registry is unbounded.
func (h *Hub) Subscribe(bufferSize int, channelTag string) *Subscriber {
	sub := newSubscriber(bufferSize, channelTag)

	h.mu.Lock()
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()

	h.log.Debug().Str("subscriber_id", sub.ID).Str("channel", channelTag).Int("subscribers", n).Msg("subscriber registered")
	return sub
}

// Unsubscribe removes a connection from the registry and closes its event
// channel. Idempotent: unsubscribing an absent or already removed ID is a
// no-op. Subscriber IDs are never reused.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		sub.closed = true
		close(sub.Events)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.log.Debug().Str("subscriber_id", id).Int("subscribers", n).Msg("subscriber removed")
	}
}

// Publish delivers the event to every registered subscriber whose channel
// filter matches. A failed write on one connection evicts that connection
// and never aborts delivery to the rest; the call itself cannot fail.
func (h *Hub) Publish(ev Event) Delivery {
	return h.fanOut(ev, ev.ChannelTag, false)
}

// Heartbeat writes a keep-alive frame to every open connection and
// refreshes its last-activity timestamp on success. A failed write
// behaves like a failed Publish. Run on a fixed period of tens of
// seconds.
func (h *Hub) Heartbeat() Delivery {
	return h.fanOut(Event{Kind: EventKeepAlive}, "", true)
}

func (h *Hub) fanOut(ev Event, channelTag string, touch bool) Delivery {
	h.mu.Lock()
	defer h.mu.Unlock()

	var d Delivery
	for id, sub := range h.subs {
		if !sub.wants(channelTag) {
			continue
		}
		if sub.push(ev) {
			d.Delivered++
			if touch {
				sub.lastActive = time.Now()
			}
			continue
		}
		// Write failed: evict locally, keep going.
		delete(h.subs, id)
		sub.closed = true
		close(sub.Events)
		d.Evicted++
		h.log.Warn().Str("subscriber_id", id).Msg("subscriber write failed, evicting")
	}
	return d
}

// Reap removes and closes every connection idle longer than maxIdle. It
// is the backstop for transports whose close notification was lost; run
// it on a periodic timer independent of Publish.
func (h *Hub) Reap(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.Lock()
	var reaped int
	for id, sub := range h.subs {
		if sub.lastActive.Before(cutoff) {
			delete(h.subs, id)
			sub.closed = true
			close(sub.Events)
			reaped++
		}
	}
	n := len(h.subs)
	h.mu.Unlock()

	if reaped > 0 {
		h.log.Info().Int("reaped", reaped).Int("subscribers", n).Msg("idle subscribers reaped")
	}
	return reaped
}

// Touch refreshes a subscriber's last-activity timestamp. The transport
// layer calls it after successfully flushing a frame to the wire.
func (h *Hub) Touch(id string) {
	h.mu.Lock()
	if sub, ok := h.subs[id]; ok {
		sub.lastActive = time.Now()
	}
	h.mu.Unlock()
}

// Len returns the current registry size.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
