package lru

import (
	"errors"
	"fmt"
	"testing"
)

func newCache(t *testing.T, capacity int) *Cache[string, int] {
	t.Helper()
	c, err := New[string, int](capacity)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

// checkStructure walks the recency list and cross-checks it against the
// index: every linked node is indexed at its own slot, back links agree
// with forward links, and the entry count matches on both sides.
func checkStructure[K comparable, V any](t *testing.T, c *Cache[K, V]) {
	t.Helper()
	seen := 0
	prev := head
	for i := c.nodes[head].next; i != tail; i = c.nodes[i].next {
		if c.nodes[i].prev != prev {
			t.Fatalf("back link of slot %d points to %d, want %d", i, c.nodes[i].prev, prev)
		}
		slot, ok := c.index[c.nodes[i].key]
		if !ok {
			t.Fatalf("linked key %v missing from index", c.nodes[i].key)
		}
		if slot != i {
			t.Fatalf("index maps key %v to slot %d, list has it at %d", c.nodes[i].key, slot, i)
		}
		seen++
		if seen > len(c.index) {
			t.Fatalf("list holds more entries than the index (%d)", len(c.index))
		}
		prev = i
	}
	if c.nodes[tail].prev != prev {
		t.Fatalf("tail back link points to %d, want %d", c.nodes[tail].prev, prev)
	}
	if seen != len(c.index) {
		t.Fatalf("list holds %d entries, index holds %d", seen, len(c.index))
	}
	if len(c.index) > c.capacity {
		t.Fatalf("size %d exceeds capacity %d", len(c.index), c.capacity)
	}
}

func TestNewRejectsInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, MaxCapacity + 1} {
		if _, err := New[string, int](capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: expected ErrInvalidCapacity, got %v", capacity, err)
		}
	}
	if _, err := New[string, int](1); err != nil {
		t.Fatalf("capacity 1 rejected: %v", err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newCache(t, 4)
	if _, evicted := c.Put("a", 1); evicted {
		t.Fatalf("unexpected eviction on insert into empty cache")
	}
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("get after put: got (%d, %v), want (1, true)", v, ok)
	}
	checkStructure(t, c)
}

func TestGetMissHasNoSideEffects(t *testing.T) {
	c := newCache(t, 2)
	c.Put("a", 1)
	c.Put("b", 2)
	if _, ok := c.Get("nope"); ok {
		t.Fatalf("hit for absent key")
	}
	keys := c.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("miss disturbed recency order: %v", keys)
	}
	checkStructure(t, c)
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := newCache(t, 8)
	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
		if c.Len() > c.Cap() {
			t.Fatalf("after %d puts: size %d exceeds capacity %d", i+1, c.Len(), c.Cap())
		}
	}
	checkStructure(t, c)
}

func TestEvictionFollowsInsertionOrderWithoutAccess(t *testing.T) {
	c := newCache(t, 3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	evicted, ok := c.Put("d", 4)
	if !ok {
		t.Fatalf("expected an eviction inserting into a full cache")
	}
	if evicted.Key != "a" || evicted.Value != 1 {
		t.Fatalf("evicted %v=%v, want a=1", evicted.Key, evicted.Value)
	}
	if c.Contains("a") {
		t.Fatalf("evicted key still present")
	}
	checkStructure(t, c)
}

func TestGetShieldsEntryFromEviction(t *testing.T) {
	c := newCache(t, 2)
	c.Put("a", 1)
	c.Put("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("get a: miss")
	}
	evicted, ok := c.Put("c", 3)
	if !ok || evicted.Key != "b" {
		t.Fatalf("expected b evicted, got (%v, %v)", evicted.Key, ok)
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Fatalf("expected a and c to survive, have %v", c.Keys())
	}
	checkStructure(t, c)
}

func TestAccessRefreshScenario(t *testing.T) {
	c, err := New[int, string](2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c.Put(1, "a")
	c.Put(2, "b")
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatalf("get 1: got (%q, %v), want (a, true)", v, ok)
	}
	evicted, ok := c.Put(3, "c")
	if !ok || evicted.Key != 2 {
		t.Fatalf("expected key 2 evicted, got (%v, %v)", evicted.Key, ok)
	}
	if _, ok := c.Get(2); ok {
		t.Fatalf("key 2 still present after eviction")
	}
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatalf("key 1 lost: got (%q, %v)", v, ok)
	}
	if v, ok := c.Get(3); !ok || v != "c" {
		t.Fatalf("key 3 lost: got (%q, %v)", v, ok)
	}
	checkStructure(t, c)
}

func TestUpdateDoesNotInsertOrEvict(t *testing.T) {
	c := newCache(t, 2)
	c.Put("a", 1)
	c.Put("b", 2)
	evicted, ok := c.Put("a", 10)
	if ok {
		t.Fatalf("update evicted %v", evicted.Key)
	}
	if c.Len() != 2 {
		t.Fatalf("update changed size to %d", c.Len())
	}
	if v, _ := c.Peek("a"); v != 10 {
		t.Fatalf("update lost: a=%d", v)
	}
	keys := c.Keys()
	if keys[0] != "a" {
		t.Fatalf("update did not refresh recency: %v", keys)
	}
	checkStructure(t, c)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := newCache(t, 2)
	c.Put("a", 1)
	if !c.Delete("a") {
		t.Fatalf("delete of present key reported absent")
	}
	if c.Delete("a") {
		t.Fatalf("second delete reported present")
	}
	if c.Len() != 0 {
		t.Fatalf("size %d after delete, want 0", c.Len())
	}
	checkStructure(t, c)
}

func TestClearResetsEverything(t *testing.T) {
	c := newCache(t, 3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("size %d after clear", c.Len())
	}
	if c.Cap() != 3 {
		t.Fatalf("clear changed capacity to %d", c.Cap())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("cleared key still readable")
	}
	checkStructure(t, c)

	c.Put("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("cache unusable after clear: got (%d, %v)", v, ok)
	}
	checkStructure(t, c)
}

func TestKeysOrderedMostRecentFirst(t *testing.T) {
	c := newCache(t, 3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Get("a")
	keys := c.Keys()
	want := []string{"a", "c", "b"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestPeekAndContainsDoNotPromote(t *testing.T) {
	c := newCache(t, 2)
	c.Put("a", 1)
	c.Put("b", 2)
	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Fatalf("peek a: got (%d, %v)", v, ok)
	}
	if !c.Contains("a") {
		t.Fatalf("contains a: false")
	}
	evicted, ok := c.Put("c", 3)
	if !ok || evicted.Key != "a" {
		t.Fatalf("peek promoted: evicted (%v, %v), want a", evicted.Key, ok)
	}
	checkStructure(t, c)
}

func TestOldestTracksEvictionCandidate(t *testing.T) {
	c := newCache(t, 2)
	if _, _, ok := c.Oldest(); ok {
		t.Fatalf("oldest reported an entry in an empty cache")
	}
	c.Put("a", 1)
	c.Put("b", 2)
	if k, v, ok := c.Oldest(); !ok || k != "a" || v != 1 {
		t.Fatalf("oldest = (%v, %v, %v), want (a, 1, true)", k, v, ok)
	}
	c.Get("a")
	if k, _, _ := c.Oldest(); k != "b" {
		t.Fatalf("oldest after promoting a = %v, want b", k)
	}
}

func TestDeletedSlotsAreRecycled(t *testing.T) {
	c := newCache(t, 4)
	c.Put("a", 1)
	c.Put("b", 2)
	grown := len(c.nodes)
	c.Delete("a")
	c.Put("c", 3)
	if len(c.nodes) != grown {
		t.Fatalf("arena grew to %d slots, want %d reused", len(c.nodes), grown)
	}
	checkStructure(t, c)
}

func TestEvictedSlotsAreRecycled(t *testing.T) {
	c := newCache(t, 2)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	if len(c.nodes) != 2+c.Cap() {
		t.Fatalf("arena holds %d slots after churn, want %d", len(c.nodes), 2+c.Cap())
	}
	checkStructure(t, c)
}

func TestSingleEntryCache(t *testing.T) {
	c := newCache(t, 1)
	c.Put("a", 1)
	evicted, ok := c.Put("b", 2)
	if !ok || evicted.Key != "a" {
		t.Fatalf("expected a evicted, got (%v, %v)", evicted.Key, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("get b: got (%d, %v)", v, ok)
	}
	checkStructure(t, c)
}
