package lru

import (
	"errors"
	"math"
)

// MaxCapacity is the largest capacity New accepts. Slots are addressed
// by int32, with two slots reserved for the list sentinels.
const MaxCapacity = math.MaxInt32 - 2

// ErrInvalidCapacity is returned by New when the requested capacity is
// outside [1, MaxCapacity].
var ErrInvalidCapacity = errors.New("keep: capacity must be positive")

// Entry is a key-value pair, as reported for evictions.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Cache is a fixed-capacity key-value store with least-recently-used
// eviction. Lookup, insertion, and eviction run in O(1) expected time.
// This type is not safe for concurrent use; see the cache package for
// a locked wrapper.
type Cache[K comparable, V any] struct {
	capacity int
	index    map[K]int32
	nodes    []node[K, V]
	free     int32
}

// New returns an empty cache holding at most capacity entries.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, ErrInvalidCapacity
	}
	c := &Cache[K, V]{
		capacity: capacity,
		index:    make(map[K]int32),
		nodes:    make([]node[K, V], 2, 2+min(capacity, 1024)),
		free:     noSlot,
	}
	c.nodes[head].next = tail
	c.nodes[tail].prev = head
	return c, nil
}

// Get returns the value stored under key and marks the entry as the
// most recently used. A miss leaves the cache untouched.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	i, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(i)
	return c.nodes[i].val, true
}

// Put stores value under key and marks the entry as the most recently
// used. Updating an existing key never evicts; inserting a new key
// into a full cache evicts the least recently used entry first, which
// is returned with ok set to true.
func (c *Cache[K, V]) Put(key K, value V) (evicted Entry[K, V], ok bool) {
	if i, exists := c.index[key]; exists {
		c.nodes[i].val = value
		c.moveToFront(i)
		return evicted, false
	}
	if len(c.index) == c.capacity {
		old := c.back()
		evicted = Entry[K, V]{Key: c.nodes[old].key, Value: c.nodes[old].val}
		c.unlink(old)
		delete(c.index, evicted.Key)
		c.release(old)
		ok = true
	}
	i := c.alloc(key, value)
	c.pushFront(i)
	c.index[key] = i
	return evicted, ok
}

// Delete removes key from the cache. It reports whether the key was
// present; deleting an absent key is a no-op.
func (c *Cache[K, V]) Delete(key K) bool {
	i, ok := c.index[key]
	if !ok {
		return false
	}
	c.unlink(i)
	delete(c.index, key)
	c.release(i)
	return true
}

// Clear removes every entry. Capacity is unchanged.
func (c *Cache[K, V]) Clear() {
	clear(c.nodes[2:])
	c.nodes = c.nodes[:2]
	c.nodes[head].next = tail
	c.nodes[tail].prev = head
	c.free = noSlot
	clear(c.index)
}

// Len returns the number of entries currently stored.
func (c *Cache[K, V]) Len() int {
	return len(c.index)
}

// Cap returns the capacity the cache was created with.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Peek returns the value stored under key without updating recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	i, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return c.nodes[i].val, true
}

// Contains reports whether key is present without updating recency.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Oldest returns the least recently used entry, the one the next
// eviction would remove, without updating recency.
func (c *Cache[K, V]) Oldest() (K, V, bool) {
	if len(c.index) == 0 {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}
	i := c.back()
	return c.nodes[i].key, c.nodes[i].val, true
}

// Keys returns all keys ordered from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.index))
	for i := c.nodes[head].next; i != tail; i = c.nodes[i].next {
		keys = append(keys, c.nodes[i].key)
	}
	return keys
}
