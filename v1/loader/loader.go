// Package loader composes a cache with a load function into a
// read-through cache. Hits come straight from the cache; misses run
// the load function and store its result. Concurrent misses for the
// same key are coalesced into a single load.
package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/mirkobrombin/go-keep/v1/cache"
)

// LoadFunc computes the value for key on a cache miss.
type LoadFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Loader is a read-through wrapper around a Cache. Load errors are
// returned to every coalesced caller and never cached, so the next Get
// retries.
type Loader[K comparable, V any] struct {
	cache cache.Cache[K, V]
	load  LoadFunc[K, V]
	group singleflight.Group
	keyFn func(K) string
}

// Option configures a Loader.
type Option[K comparable, V any] func(*Loader[K, V])

// WithKeyFunc overrides how keys are mapped to flight groups. The
// default stringifies the key with fmt.Sprint, which is fine for any
// key type whose string form is unique.
func WithKeyFunc[K comparable, V any](fn func(K) string) Option[K, V] {
	return func(l *Loader[K, V]) {
		l.keyFn = fn
	}
}

// New returns a Loader reading through c with load.
func New[K comparable, V any](c cache.Cache[K, V], load LoadFunc[K, V], opts ...Option[K, V]) *Loader[K, V] {
	l := &Loader[K, V]{
		cache: c,
		load:  load,
		keyFn: func(key K) string { return fmt.Sprint(key) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the value for key, loading and caching it on a miss.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	value, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	if ok {
		return value, nil
	}

	res, err, _ := l.group.Do(l.keyFn(key), func() (any, error) {
		// A coalesced caller may arrive after the winning flight
		// stored the value.
		if value, ok, err := l.cache.Get(ctx, key); err == nil && ok {
			return value, nil
		}
		value, err := l.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, key, value); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
