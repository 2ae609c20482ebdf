// Package watch streams cache removal events. A Bus fans events out to
// in-process subscribers; forwarders republish them onto NATS or Kafka
// and handlers expose them over SSE and WebSocket. Delivery is
// best-effort: subscribers that fall behind miss events rather than
// block the cache.
package watch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reason classifies why an entry left the cache.
type Reason string

const (
	// ReasonEvicted marks a capacity eviction of the least recently
	// used entry.
	ReasonEvicted Reason = "evicted"
	// ReasonDeleted marks an explicit removal.
	ReasonDeleted Reason = "deleted"
	// ReasonCleared marks a full reset. Cleared events carry the zero
	// key and stand for the whole cache.
	ReasonCleared Reason = "cleared"
)

// Event describes a single removal.
type Event[K comparable] struct {
	ID     string    `json:"id"`
	Key    K         `json:"key"`
	Reason Reason    `json:"reason"`
	At     time.Time `json:"at"`
}

// NewEvent returns an Event for key with a fresh ID and timestamp.
func NewEvent[K comparable](key K, reason Reason) Event[K] {
	return Event[K]{
		ID:     uuid.NewString(),
		Key:    key,
		Reason: reason,
		At:     time.Now().UTC(),
	}
}

// subscriberBuffer is the channel depth handed to each watcher. A full
// channel drops the event instead of blocking the publisher.
const subscriberBuffer = 16

// Bus fans removal events out to watchers.
type Bus[K comparable] interface {
	// Publish delivers ev to every watcher of ev.Key and every
	// watch-all subscriber.
	Publish(ctx context.Context, ev Event[K]) error
	// Watch subscribes to events for key. The returned channel
	// receives events until the context is canceled or Unwatch is
	// called, after which it is closed.
	Watch(ctx context.Context, key K) (chan Event[K], error)
	// WatchAll subscribes to every event on the bus.
	WatchAll(ctx context.Context) (chan Event[K], error)
	// Unwatch stops delivering events for key to ch.
	Unwatch(ctx context.Context, key K, ch chan Event[K]) error
	// UnwatchAll removes a watch-all subscription.
	UnwatchAll(ctx context.Context, ch chan Event[K]) error
}

// ForwarderStats reports delivery counts for a forwarder.
type ForwarderStats struct {
	Forwarded uint64
	Failed    uint64
}
