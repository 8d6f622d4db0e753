package cache

import (
	"sync"

	"github.com/hupe1980/globdex/internal/hash"
	"github.com/hupe1980/globdex/internal/resource"
)

// MaxShards bounds the shard count.
const MaxShards = 64

// ShardedLRU distributes entries across independent LRU shards to reduce lock
// contention. Each shard owns capacity/shards of the total.
type ShardedLRU[V any] struct {
	shards []*LRU[V]
}

// NewShardedLRU creates a sharded cache. The shard count is the largest power
// of two not above min(MaxShards, capacity/unitCost), so that every shard can
// hold at least one entry of unitCost.
func NewShardedLRU[V any](capacity, unitCost int64, rc *resource.Controller, onEvict EvictFunc[V]) *ShardedLRU[V] {
	n := 1
	if unitCost > 0 {
		for n*2 <= MaxShards && int64(n*2)*unitCost <= capacity {
			n *= 2
		}
	}

	s := &ShardedLRU[V]{shards: make([]*LRU[V], n)}
	for i := range s.shards {
		s.shards[i] = NewLRU(capacity/int64(n), rc, onEvict)
	}
	return s
}

func (s *ShardedLRU[V]) shard(key Key) *LRU[V] {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	return s.shards[hash.Shard(key.Row, key.Segment)%uint64(len(s.shards))]
}

// Get returns a cached value.
func (s *ShardedLRU[V]) Get(key Key) (V, bool) {
	return s.shard(key).Get(key)
}

// Add caches a value. See LRU.Add.
func (s *ShardedLRU[V]) Add(key Key, value V, cost int64) bool {
	return s.shard(key).Add(key, value, cost)
}

// Peek returns a cached value without touching recency or counters.
func (s *ShardedLRU[V]) Peek(key Key) (V, bool) {
	return s.shard(key).Peek(key)
}

// Purge evicts all entries from all shards in parallel.
func (s *ShardedLRU[V]) Purge() {
	var wg sync.WaitGroup
	wg.Add(len(s.shards))

	for _, shard := range s.shards {
		go func(shard *LRU[V]) {
			defer wg.Done()
			shard.Purge()
		}(shard)
	}

	wg.Wait()
}

// Shards returns the shard count.
func (s *ShardedLRU[V]) Shards() int {
	return len(s.shards)
}

// Stats returns counters aggregated across shards.
func (s *ShardedLRU[V]) Stats() Stats {
	var total Stats
	for _, shard := range s.shards {
		total.add(shard.Stats())
	}
	return total
}
