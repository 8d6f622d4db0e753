package cache

import (
	"testing"

	"github.com/hupe1980/globdex/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetAdd(t *testing.T) {
	c := NewLRU[string](100, nil, nil)
	k := Key{Row: "r", Segment: 1}

	_, ok := c.Get(k)
	assert.False(t, ok)

	require.True(t, c.Add(k, "v1", 10))
	v, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	// Replace keeps the original cost.
	require.True(t, c.Add(k, "v2", 10))
	v, _ = c.Get(k)
	assert.Equal(t, "v2", v)
	assert.Equal(t, int64(10), c.Size())

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []Key
	c := NewLRU(30, nil, func(k Key, _ int) { evicted = append(evicted, k) })

	k1, k2, k3, k4 := Key{"a", 1}, Key{"a", 2}, Key{"a", 3}, Key{"a", 4}
	c.Add(k1, 1, 10)
	c.Add(k2, 2, 10)
	c.Add(k3, 3, 10)

	// Touch k1 so k2 becomes the eviction candidate.
	c.Get(k1)
	c.Add(k4, 4, 10)

	assert.Equal(t, []Key{k2}, evicted)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)

	_, ok := c.Get(k2)
	assert.False(t, ok)
}

func TestLRU_RejectsOversized(t *testing.T) {
	c := NewLRU[int](50, nil, nil)
	assert.False(t, c.Add(Key{"big", 0}, 1, 60))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.Stats().Rejected)
}

func TestLRU_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 15})
	c := NewLRU[int](100, rc, nil)

	require.True(t, c.Add(Key{"a", 0}, 1, 10))
	assert.Equal(t, int64(10), rc.MemoryUsage())

	// The budget refuses what the local capacity would allow.
	assert.False(t, c.Add(Key{"b", 0}, 2, 10))
	assert.Equal(t, int64(10), rc.MemoryUsage())

	c.Purge()
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRU_Purge(t *testing.T) {
	n := 0
	c := NewLRU(100, nil, func(Key, int) { n++ })
	for i := range 5 {
		c.Add(Key{"r", uint64(i)}, i, 1)
	}

	c.Purge()
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_EvictCallbackRunsBeforeKeyMisses(t *testing.T) {
	var c *LRU[int]
	handedOff := map[Key]bool{}
	c = NewLRU(10, nil, func(k Key, _ int) {
		// The victim is already gone, and no other goroutine can observe
		// the miss until the callback returns.
		assert.False(t, c.mu.TryLock())
		handedOff[k] = true
	})

	k1, k2 := Key{"a", 1}, Key{"a", 2}
	require.True(t, c.Add(k1, 1, 10))
	require.True(t, c.Add(k2, 2, 10))

	assert.True(t, handedOff[k1])
	_, ok := c.Peek(k1)
	assert.False(t, ok)
}
