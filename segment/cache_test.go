package segment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/globdex/bitmap"
	"github.com/hupe1980/globdex/internal/cache"
	"github.com/hupe1980/globdex/internal/resource"
	"github.com/hupe1980/globdex/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSegmentBits = 64 // 8 byte images

func TestNewCache_InvalidSegmentBits(t *testing.T) {
	_, err := NewCache(store.NewMemoryStore(), 12)
	assert.ErrorIs(t, err, bitmap.ErrInvalidLength)
}

func TestCache_SetAndRead(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	c, err := NewCache(st, testSegmentBits, WithBudget(1024))
	require.NoError(t, err)
	defer c.Close(ctx)

	require.NoError(t, c.Set(ctx, []byte("row"), 3, 1, 2))

	s, err := c.Segment(ctx, []byte("row"), 3)
	require.NoError(t, err)
	bits, err := s.Asserted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, bits)

	raw, err := st.Get(ctx, []byte("row"), Column(3))
	require.NoError(t, err)
	assert.Equal(t, byte(0x06), raw[0])

	stats := c.Stats()
	assert.Equal(t, 1, stats.Segments)
	assert.Equal(t, int64(8), stats.Bytes)
	assert.Equal(t, int64(1), stats.Loads)
	assert.Positive(t, stats.Hits)
}

func TestCache_SingleFlight(t *testing.T) {
	ctx := context.Background()
	c, err := NewCache(store.NewMemoryStore(), testSegmentBits, WithBudget(1024))
	require.NoError(t, err)
	defer c.Close(ctx)

	const n = 16
	segs := make([]*Segment, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(i int) {
			defer wg.Done()
			s, err := c.Segment(ctx, []byte("row"), 0)
			assert.NoError(t, err)
			segs[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range segs {
		assert.Same(t, segs[0], s)
	}
	assert.Equal(t, int64(1), c.Stats().Loads)
}

func TestCache_EvictionReloads(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{name: "synchronous"},
		{name: "coalescing", opts: []Option{WithWriteCoalescing(2)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()

			// Room for two segments.
			opts := append([]Option{WithBudget(2 * testSegmentBits / 8)}, tc.opts...)
			c, err := NewCache(st, testSegmentBits, opts...)
			require.NoError(t, err)
			defer c.Close(ctx)

			const segments = 10
			for i := range uint64(segments) {
				require.NoError(t, c.Set(ctx, []byte("row"), i, i, i+1))
			}
			assert.Positive(t, c.Stats().Evictions)
			assert.LessOrEqual(t, c.Stats().Segments, 2)

			for i := range uint64(segments) {
				s, err := c.Segment(ctx, []byte("row"), i)
				require.NoError(t, err)
				bits, err := s.Asserted(ctx)
				require.NoError(t, err)
				assert.Equal(t, []uint64{i, i + 1}, bits, "segment %d", i)
			}

			require.NoError(t, c.Flush(ctx))
			assert.Zero(t, c.Stats().Retired)
			for i := range uint64(segments) {
				raw, err := st.Get(ctx, []byte("row"), Column(i))
				require.NoError(t, err)
				assert.Equal(t, []uint64{i, i + 1}, bitmap.AssertedBits(raw))
			}
		})
	}
}

func TestCache_ConcurrentWritersWithEviction(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	c, err := NewCache(st, testSegmentBits, WithBudget(testSegmentBits/8), WithWriteCoalescing(4))
	require.NoError(t, err)

	rows := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range 50 {
				row := rows[(w+i)%len(rows)]
				bit := uint64(w*8+i) % testSegmentBits
				assert.NoError(t, c.Set(ctx, row, 0, bit))
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, c.Close(ctx))

	want := map[string]map[uint64]bool{}
	for w := range 8 {
		for i := range 50 {
			row := string(rows[(w+i)%len(rows)])
			if want[row] == nil {
				want[row] = map[uint64]bool{}
			}
			want[row][uint64(w*8+i)%testSegmentBits] = true
		}
	}

	for _, row := range rows {
		raw, err := st.Get(ctx, row, Column(0))
		require.NoError(t, err)
		got := bitmap.AssertedBits(raw)
		assert.Len(t, got, len(want[string(row)]), "row %s", row)
		for _, b := range got {
			assert.True(t, want[string(row)][b], fmt.Sprintf("row %s bit %d", row, b))
		}
	}
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	for _, budget := range []int64{0, 4} {
		c, err := NewCache(st, testSegmentBits, WithBudget(budget), WithWriteCoalescing(1))
		require.NoError(t, err)

		require.NoError(t, c.Set(ctx, []byte("r"), 1, 5))
		raw, err := st.Get(ctx, []byte("r"), Column(1))
		require.NoError(t, err)
		assert.Equal(t, byte(0x20), raw[0])

		s, err := c.Segment(ctx, []byte("r"), 1)
		require.NoError(t, err)
		got, err := s.Get(ctx, 5)
		require.NoError(t, err)
		assert.True(t, got)

		assert.Zero(t, c.Stats().Segments)
		require.NoError(t, c.Close(ctx))
	}
}

func TestCache_Closed(t *testing.T) {
	ctx := context.Background()
	c, err := NewCache(store.NewMemoryStore(), testSegmentBits, WithBudget(64))
	require.NoError(t, err)

	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))

	assert.ErrorIs(t, c.Set(ctx, []byte("r"), 0, 1), ErrCacheClosed)
	_, err = c.Segment(ctx, []byte("r"), 0)
	assert.ErrorIs(t, err, ErrCacheClosed)
}

func TestCache_SharedFlusher(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	f := NewFlusher(1)
	c, err := NewCache(st, testSegmentBits, WithBudget(1024), WithDeferredWrites(f))
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, []byte("r"), 0, 1))
	require.NoError(t, c.Flush(ctx))

	raw, err := st.Get(ctx, []byte("r"), Column(0))
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), raw[0])

	// The cache does not own f, so it keeps running after Close.
	require.NoError(t, c.Close(ctx))
	flushes := f.Stats().Flushes

	s, err := New(st, []byte("x"), 0, testSegmentBits, WithDeferredWrites(f))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, 0, true))
	require.NoError(t, f.Drain(ctx))
	assert.Equal(t, flushes+1, f.Stats().Flushes)

	require.NoError(t, f.Close())
}

func (c *Cache) isHandedOff(key cache.Key, s *Segment) bool {
	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()

	v, retired := c.retired.Load(key)
	return detached || (retired && v.(*Segment) == s)
}

func TestCache_EvictedSegmentKeepsWrites(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{name: "synchronous"},
		{name: "coalescing", opts: []Option{WithWriteCoalescing(1)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			row := []byte("row")
			key := cache.Key{Row: string(row), Segment: 0}

			// Room for a single segment.
			opts := append([]Option{WithBudget(testSegmentBits / 8)}, tc.opts...)
			c, err := NewCache(st, testSegmentBits, opts...)
			require.NoError(t, err)
			defer c.Close(ctx)

			a, err := c.Segment(ctx, row, 0)
			require.NoError(t, err)
			require.NoError(t, a.SetMany(ctx, 1))

			// Loading segment 1 evicts a. It must be detached or retired by
			// the time the load returns.
			require.NoError(t, c.Set(ctx, row, 1, 0))
			assert.True(t, c.isHandedOff(key, a))

			b, err := c.Segment(ctx, row, 0)
			require.NoError(t, err)
			require.NoError(t, b.SetMany(ctx, 2))

			// A writer still holding a either reaches the live instance or is
			// told to retry.
			if err := a.SetMany(ctx, 3); errors.Is(err, errDetached) {
				require.NoError(t, c.Set(ctx, row, 0, 3))
			} else {
				require.NoError(t, err)
			}

			require.NoError(t, c.Flush(ctx))
			require.NoError(t, c.Close(ctx))

			raw, err := st.Get(ctx, row, Column(0))
			require.NoError(t, err)
			assert.Equal(t, []uint64{1, 2, 3}, bitmap.AssertedBits(raw))
		})
	}
}

func TestCache_UncachedWriteReachesLiveSegment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	row := []byte("row")
	key := cache.Key{Row: string(row), Segment: 0}

	c, err := NewCache(st, testSegmentBits, WithBudget(1024), WithWriteCoalescing(1))
	require.NoError(t, err)

	live, err := c.Segment(ctx, row, 0)
	require.NoError(t, err)
	require.NoError(t, live.SetMany(ctx, 1))

	// A write that took the uncached path after live was admitted.
	require.NoError(t, c.setUncached(ctx, key, []uint64{2}))

	bits, err := live.Asserted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, bits)

	require.NoError(t, c.Close(ctx))
	raw, err := st.Get(ctx, row, Column(0))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, bitmap.AssertedBits(raw))
}

func TestCache_RejectedSegmentWritesThrough(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	// The controller refuses every segment the cache would take.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: testSegmentBits/8 - 4})
	c, err := NewCache(st, testSegmentBits, WithBudget(1024), WithResourceController(rc), WithWriteCoalescing(1))
	require.NoError(t, err)
	defer c.Close(ctx)

	require.NoError(t, c.Set(ctx, []byte("b"), 0, 2))
	require.NoError(t, c.Set(ctx, []byte("b"), 0, 3))

	assert.Positive(t, c.Stats().Rejected)
	raw, err := st.Get(ctx, []byte("b"), Column(0))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, bitmap.AssertedBits(raw))
}
