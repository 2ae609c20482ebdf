package watch

import (
	"context"
	"sync"
)

// InMemoryBus is an in-process implementation of Bus.
type InMemoryBus[K comparable] struct {
	mu   sync.Mutex
	subs map[K][]chan Event[K]
	all  []chan Event[K]
}

// NewInMemoryBus creates an empty InMemoryBus.
func NewInMemoryBus[K comparable]() *InMemoryBus[K] {
	return &InMemoryBus[K]{subs: make(map[K][]chan Event[K])}
}

// Publish delivers ev to key watchers and watch-all subscribers.
func (b *InMemoryBus[K]) Publish(ctx context.Context, ev Event[K]) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	chans := append([]chan Event[K](nil), b.subs[ev.Key]...)
	chans = append(chans, b.all...)
	b.mu.Unlock()
	for _, ch := range chans {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Watch subscribes to events for key.
func (b *InMemoryBus[K]) Watch(ctx context.Context, key K) (chan Event[K], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ch := make(chan Event[K], subscriberBuffer)
	b.mu.Lock()
	b.subs[key] = append(b.subs[key], ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = b.Unwatch(context.Background(), key, ch)
	}()
	return ch, nil
}

// WatchAll subscribes to every event on the bus.
func (b *InMemoryBus[K]) WatchAll(ctx context.Context) (chan Event[K], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ch := make(chan Event[K], subscriberBuffer)
	b.mu.Lock()
	b.all = append(b.all, ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = b.UnwatchAll(context.Background(), ch)
	}()
	return ch, nil
}

// Unwatch removes ch from the watchers of key.
func (b *InMemoryBus[K]) Unwatch(ctx context.Context, key K, ch chan Event[K]) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	subs := b.subs[key]
	for i, c := range subs {
		if c == ch {
			subs[i] = subs[len(subs)-1]
			subs = subs[:len(subs)-1]
			b.subs[key] = subs
			close(c)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, key)
	}
	b.mu.Unlock()
	return nil
}

// UnwatchAll removes ch from the watch-all subscribers.
func (b *InMemoryBus[K]) UnwatchAll(ctx context.Context, ch chan Event[K]) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	for i, c := range b.all {
		if c == ch {
			b.all[i] = b.all[len(b.all)-1]
			b.all = b.all[:len(b.all)-1]
			close(c)
			break
		}
	}
	b.mu.Unlock()
	return nil
}
