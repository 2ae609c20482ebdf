// Package lru implements the fixed-capacity least-recently-used cache
// at the core of go-keep. Entries live in a flat arena indexed by slot
// number, linked into a recency list between two sentinels, so every
// operation is O(1) and allocation-free once the arena has grown to
// capacity. The type is deliberately single-threaded; concurrent
// callers should use the cache package, which wraps it behind a lock.
package lru
