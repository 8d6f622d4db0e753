package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/globdex/internal/resource"
)

// LRU is a cost-bounded least-recently-used cache.
type LRU[V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller
	onEvict   EvictFunc[V]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	rejected  atomic.Int64
}

type entry[V any] struct {
	key   Key
	value V
	cost  int64
}

// NewLRU creates an LRU holding at most capacity cost units.
// If rc is provided, every admitted entry also reserves its cost there.
func NewLRU[V any](capacity int64, rc *resource.Controller, onEvict EvictFunc[V]) *LRU[V] {
	return &LRU[V]{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
		onEvict:   onEvict,
	}
}

// Get returns the cached value and marks it recently used.
func (c *LRU[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[V]).value, true
	}

	c.misses.Add(1)
	var zero V
	return zero, false
}

// Add inserts or replaces a value. It returns false if the value was not
// admitted, either because cost exceeds the capacity or because the memory
// budget refused the reservation.
//
// Victims are passed to the eviction callback before the lock is released, so
// a later miss on a victim's key observes the callback's effect. The callback
// must not call back into the cache.
func (c *LRU[V]) Add(key Key, value V, cost int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry[V])
		e.value = value
		return true
	}

	if cost > c.capacity {
		c.rejected.Add(1)
		return false
	}

	// Make local room first so evictions release budget before we reserve it.
	for c.size+cost > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.notify(c.removeElement(ent))
	}

	if !c.rc.TryAcquireMemory(cost) {
		c.rejected.Add(1)
		return false
	}

	e := &entry[V]{key: key, value: value, cost: cost}
	c.items[key] = c.evictList.PushFront(e)
	c.size += cost
	return true
}

// Peek returns the cached value without touching recency or counters.
func (c *LRU[V]) Peek(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		return ent.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Purge evicts every entry, calling the eviction callback for each.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ent := c.evictList.Back(); ent != nil; ent = c.evictList.Back() {
		c.notify(c.removeElement(ent))
	}
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the total cost of all entries.
func (c *LRU[V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns the cache counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	n, size := c.evictList.Len(), c.size
	c.mu.Unlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Rejected:  c.rejected.Load(),
		Len:       n,
		Size:      size,
	}
}

func (c *LRU[V]) removeElement(ent *list.Element) *entry[V] {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry[V])
	delete(c.items, e.key)
	c.size -= e.cost
	c.rc.ReleaseMemory(e.cost)
	c.evictions.Add(1)
	return e
}

// notify runs the eviction callback. c.mu must be held.
func (c *LRU[V]) notify(e *entry[V]) {
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
