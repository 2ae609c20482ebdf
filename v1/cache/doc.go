// Package cache provides the concurrent caching layer of go-keep. It
// wraps the single-threaded LRU core behind one lock, since reads
// refresh recency there is no read-only fast path, and layers metrics,
// tracing, and removal-event publishing on top through options.
package cache
