package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-keep/v1/lru"
	"github.com/mirkobrombin/go-keep/v1/watch"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-keep/v1/cache")

// Cache defines the operations of a concurrent cache.
//
// K is the key type, V the type of stored values.
type Cache[K comparable, V any] interface {
	// Get retrieves the value for the given key and refreshes its
	// recency. The boolean return indicates whether the key was found;
	// a miss is not an error.
	Get(ctx context.Context, key K) (V, bool, error)
	// Set stores the value for the given key, evicting the least
	// recently used entry when the cache is full.
	Set(ctx context.Context, key K, value V) error
	// Delete removes the key from the cache and reports whether it was
	// present.
	Delete(ctx context.Context, key K) (bool, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Len returns the number of stored entries.
	Len() int
}

// LRUCache is a fixed-capacity cache with least-recently-used eviction,
// safe for concurrent use. Every operation that touches an entry runs
// under one exclusive lock: a Get reorders the recency list, so there
// is no shared read path.
type LRUCache[K comparable, V any] struct {
	mu    sync.RWMutex
	store *lru.Cache[K, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	onEvict func(K, V)
	events  watch.Bus[K]

	hitCounter      prometheus.Counter
	missCounter     prometheus.Counter
	evictionCounter prometheus.Counter
	latencyHist     prometheus.Histogram
	traceEnabled    bool
}

var _ Cache[string, int] = (*LRUCache[string, int])(nil)

// Option configures an LRUCache.
type Option[K comparable, V any] func(*LRUCache[K, V])

// WithMetrics enables Prometheus metrics collection using the provided registerer.
func WithMetrics[K comparable, V any](reg prometheus.Registerer) Option[K, V] {
	return func(c *LRUCache[K, V]) {
		c.hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keep_cache_hits_total",
			Help: "Total number of cache hits",
		})
		c.missCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keep_cache_misses_total",
			Help: "Total number of cache misses",
		})
		c.evictionCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keep_cache_evictions_total",
			Help: "Total number of cache evictions",
		})
		c.latencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keep_cache_latency_seconds",
			Help:    "Latency of cache operations",
			Buckets: prometheus.DefBuckets,
		})
		reg.MustRegister(c.hitCounter, c.missCounter, c.evictionCounter, c.latencyHist)
	}
}

// WithTracing enables OpenTelemetry tracing for cache operations.
func WithTracing[K comparable, V any]() Option[K, V] {
	return func(c *LRUCache[K, V]) {
		c.traceEnabled = true
	}
}

// WithOnEvict registers a callback invoked for every capacity
// eviction. The callback runs outside the cache lock, on the goroutine
// whose Set caused the eviction.
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRUCache[K, V]) {
		c.onEvict = fn
	}
}

// WithEvents publishes removal events to bus. Publish failures are
// logged and never fail the cache operation.
func WithEvents[K comparable, V any](bus watch.Bus[K]) Option[K, V] {
	return func(c *LRUCache[K, V]) {
		c.events = bus
	}
}

// New returns an LRUCache holding at most capacity entries.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (*LRUCache[K, V], error) {
	store, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, err
	}
	c := &LRUCache[K, V]{store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get implements Cache.Get.
func (c *LRUCache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var span trace.Span
	var start time.Time
	if c.traceEnabled {
		ctx, span = tracer.Start(ctx, "Cache.Get")
		defer span.End()
		start = time.Now()
	} else if c.latencyHist != nil {
		start = time.Now()
	}

	if c.traceEnabled || c.latencyHist != nil {
		defer func() {
			latency := time.Since(start)
			if c.traceEnabled {
				span.SetAttributes(attribute.Int64("keep.cache.latency_ms", latency.Milliseconds()))
			}
			if c.latencyHist != nil {
				c.latencyHist.Observe(latency.Seconds())
			}
		}()
	}
	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	default:
	}
	c.mu.Lock()
	value, ok := c.store.Get(key)
	c.mu.Unlock()
	if !ok {
		c.misses.Add(1)
		if c.missCounter != nil {
			c.missCounter.Inc()
		}
		if c.traceEnabled {
			span.SetAttributes(attribute.String("keep.cache.result", "miss"))
		}
		var zero V
		return zero, false, nil
	}
	c.hits.Add(1)
	if c.hitCounter != nil {
		c.hitCounter.Inc()
	}
	if c.traceEnabled {
		span.SetAttributes(attribute.String("keep.cache.result", "hit"))
	}
	return value, true, nil
}

// Set implements Cache.Set.
func (c *LRUCache[K, V]) Set(ctx context.Context, key K, value V) error {
	var span trace.Span
	var start time.Time
	if c.traceEnabled {
		ctx, span = tracer.Start(ctx, "Cache.Set")
		defer span.End()
		start = time.Now()
	} else if c.latencyHist != nil {
		start = time.Now()
	}

	if c.traceEnabled || c.latencyHist != nil {
		defer func() {
			latency := time.Since(start)
			if c.traceEnabled {
				span.SetAttributes(attribute.Int64("keep.cache.latency_ms", latency.Milliseconds()))
			}
			if c.latencyHist != nil {
				c.latencyHist.Observe(latency.Seconds())
			}
		}()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.mu.Lock()
	select {
	case <-ctx.Done():
		c.mu.Unlock()
		return ctx.Err()
	default:
	}
	evicted, ok := c.store.Put(key, value)
	c.mu.Unlock()
	if ok {
		c.evictions.Add(1)
		if c.evictionCounter != nil {
			c.evictionCounter.Inc()
		}
		c.notifyEvicted(ctx, evicted)
	}
	return nil
}

// Delete implements Cache.Delete.
func (c *LRUCache[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	var span trace.Span
	var start time.Time
	if c.traceEnabled {
		ctx, span = tracer.Start(ctx, "Cache.Delete")
		defer span.End()
		start = time.Now()
	} else if c.latencyHist != nil {
		start = time.Now()
	}

	if c.traceEnabled || c.latencyHist != nil {
		defer func() {
			latency := time.Since(start)
			if c.traceEnabled {
				span.SetAttributes(attribute.Int64("keep.cache.latency_ms", latency.Milliseconds()))
			}
			if c.latencyHist != nil {
				c.latencyHist.Observe(latency.Seconds())
			}
		}()
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	c.mu.Lock()
	select {
	case <-ctx.Done():
		c.mu.Unlock()
		return false, ctx.Err()
	default:
	}
	removed := c.store.Delete(key)
	c.mu.Unlock()
	if removed {
		c.publish(ctx, watch.NewEvent(key, watch.ReasonDeleted))
	}
	return removed, nil
}

// Clear implements Cache.Clear.
func (c *LRUCache[K, V]) Clear(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.mu.Lock()
	c.store.Clear()
	c.mu.Unlock()
	var zero K
	c.publish(ctx, watch.NewEvent(zero, watch.ReasonCleared))
	return nil
}

// notifyEvicted runs the eviction callback and publishes the removal
// event. Both happen outside the cache lock.
func (c *LRUCache[K, V]) notifyEvicted(ctx context.Context, e lru.Entry[K, V]) {
	if c.onEvict != nil {
		c.onEvict(e.Key, e.Value)
	}
	c.publish(ctx, watch.NewEvent(e.Key, watch.ReasonEvicted))
}

func (c *LRUCache[K, V]) publish(ctx context.Context, ev watch.Event[K]) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, ev); err != nil {
		slog.Warn("keep: removal event dropped", "reason", ev.Reason, "err", err)
	}
}

// Len returns the number of stored entries.
func (c *LRUCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}

// Cap returns the capacity the cache was created with.
func (c *LRUCache[K, V]) Cap() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Cap()
}

// Contains reports whether key is present without refreshing its
// recency.
func (c *LRUCache[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Contains(key)
}

// Keys returns all keys ordered from most to least recently used.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Keys()
}

// Stats reports basic metrics about cache usage.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Metrics returns current metrics for the cache.
func (c *LRUCache[K, V]) Metrics() Stats {
	c.mu.RLock()
	size := c.store.Len()
	c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
	}
}
