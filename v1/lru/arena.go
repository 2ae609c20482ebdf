package lru

// Nodes live in a flat arena and reference each other by slot index
// rather than by pointer. Slots 0 and 1 hold the list sentinels, real
// entries start at slot 2. Freed slots are threaded into a free list
// through their next field and recycled before the arena grows.
const (
	head   int32 = 0 // sentinel on the most-recently-used side
	tail   int32 = 1 // sentinel on the least-recently-used side
	noSlot int32 = -1
)

type node[K comparable, V any] struct {
	key  K
	val  V
	prev int32
	next int32
}

// alloc returns a slot holding the given entry, recycling a freed slot
// when one is available.
func (c *Cache[K, V]) alloc(key K, value V) int32 {
	if c.free != noSlot {
		i := c.free
		c.free = c.nodes[i].next
		c.nodes[i] = node[K, V]{key: key, val: value}
		return i
	}
	c.nodes = append(c.nodes, node[K, V]{key: key, val: value})
	return int32(len(c.nodes) - 1)
}

// release zeroes the slot, so the arena keeps no reference to the
// evicted key or value, and pushes it onto the free list.
func (c *Cache[K, V]) release(i int32) {
	c.nodes[i] = node[K, V]{next: c.free}
	c.free = i
}

func (c *Cache[K, V]) pushFront(i int32) {
	first := c.nodes[head].next
	c.nodes[i].prev = head
	c.nodes[i].next = first
	c.nodes[first].prev = i
	c.nodes[head].next = i
}

func (c *Cache[K, V]) unlink(i int32) {
	prev, next := c.nodes[i].prev, c.nodes[i].next
	c.nodes[prev].next = next
	c.nodes[next].prev = prev
}

func (c *Cache[K, V]) moveToFront(i int32) {
	if c.nodes[head].next == i {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}

// back returns the least-recently-used slot, or the tail sentinel when
// the list is empty.
func (c *Cache[K, V]) back() int32 {
	return c.nodes[tail].prev
}
