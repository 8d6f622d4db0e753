package segment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/hupe1980/globdex/bitmap"
	"github.com/hupe1980/globdex/internal/cache"
	"github.com/hupe1980/globdex/internal/hash"
	"github.com/hupe1980/globdex/store"
	"golang.org/x/sync/singleflight"
)

// ErrCacheClosed is returned by a closed Cache.
var ErrCacheClosed = errors.New("segment: cache closed")

// stripeCount is the number of locks serializing segment loads and uncached
// writes per key.
const stripeCount = 64

// Stats holds cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	// Rejected counts segments the memory budget refused to admit.
	Rejected int64
	// Loads counts segment instances created on a miss.
	Loads int64
	// Segments and Bytes describe the cached segments.
	Segments int
	Bytes    int64
	// Retired is the number of evicted segments awaiting their flush.
	Retired int

	FlusherStats
}

type acquired struct {
	seg     *Segment
	tracked bool
}

// Cache holds live segments of fixed length under a memory budget.
type Cache struct {
	st          store.Store
	segmentBits uint64
	opts        options

	lru     *cache.ShardedLRU[*Segment] // nil when caching is disabled
	group   singleflight.Group
	retired sync.Map // cache.Key -> *Segment
	stripes [stripeCount]sync.Mutex

	flusher     *Flusher
	ownsFlusher bool

	loads  atomic.Int64
	closed atomic.Bool
}

// NewCache creates a cache of segments with segmentBits bits each.
func NewCache(st store.Store, segmentBits uint64, opts ...Option) (*Cache, error) {
	if segmentBits == 0 || segmentBits%8 != 0 {
		return nil, fmt.Errorf("%w: segment of %d bits", bitmap.ErrInvalidLength, segmentBits)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache{
		st:          st,
		segmentBits: segmentBits,
		opts:        o,
	}

	unit := int64(segmentBits / 8)
	if o.budget < unit {
		if o.budget > 0 {
			o.logger.Warn("cache budget below one segment, caching disabled",
				"budget", humanize.IBytes(uint64(o.budget)),
				"segment", humanize.IBytes(uint64(unit)))
		}
		return c, nil
	}

	c.lru = cache.NewShardedLRU(o.budget, unit, o.rc, c.evict)

	switch {
	case o.flusher != nil:
		c.flusher = o.flusher
	case o.workers > 0:
		c.flusher = NewFlusher(o.workers, WithLogger(o.logger), WithResourceController(o.rc))
		c.ownsFlusher = true
	}

	o.logger.Debug("segment cache created",
		"budget", humanize.IBytes(uint64(o.budget)),
		"segments", o.budget/unit,
		"shards", c.lru.Shards(),
		"coalescing", c.flusher != nil)

	return c, nil
}

// SegmentBits returns the length of every segment.
func (c *Cache) SegmentBits() uint64 { return c.segmentBits }

// Segment returns segment index of row for reading.
func (c *Cache) Segment(ctx context.Context, row []byte, index uint64) (*Segment, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	if c.lru == nil {
		return New(c.st, row, index, c.segmentBits, WithLogger(c.opts.logger))
	}

	a, err := c.acquire(cache.Key{Row: string(row), Segment: index})
	if err != nil {
		return nil, err
	}
	return a.seg, nil
}

// Set asserts bits of segment index of row.
func (c *Cache) Set(ctx context.Context, row []byte, index uint64, bits ...uint64) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	key := cache.Key{Row: string(row), Segment: index}
	if c.lru == nil {
		return c.setUncached(ctx, key, bits)
	}

	for {
		a, err := c.acquire(key)
		if err != nil {
			return err
		}
		if !a.tracked {
			return c.setUncached(ctx, key, bits)
		}

		err = a.seg.SetMany(ctx, bits...)
		if !errors.Is(err, errDetached) {
			return err
		}
	}
}

// setUncached performs a synchronous read-modify-write. It holds the key's
// stripe, so no segment instance for the key can be loaded meanwhile. An
// instance admitted before the stripe was taken receives the bits instead.
func (c *Cache) setUncached(ctx context.Context, key cache.Key, bits []uint64) error {
	mu := c.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	if s := c.live(key); s != nil {
		err := s.SetMany(ctx, bits...)
		if !errors.Is(err, errDetached) {
			return err
		}
	}

	s, err := New(c.st, []byte(key.Row), key.Segment, c.segmentBits, WithLogger(c.opts.logger))
	if err != nil {
		return err
	}
	return s.SetMany(ctx, bits...)
}

func (c *Cache) stripe(key cache.Key) *sync.Mutex {
	return &c.stripes[hash.Shard(key.Row, key.Segment)%stripeCount]
}

// live returns the cached or retired instance of key, if any.
func (c *Cache) live(key cache.Key) *Segment {
	if c.lru == nil {
		return nil
	}
	if s, ok := c.lru.Peek(key); ok {
		return s
	}
	if v, ok := c.retired.Load(key); ok {
		return v.(*Segment)
	}
	return nil
}

func (c *Cache) acquire(key cache.Key) (acquired, error) {
	if s, ok := c.lru.Get(key); ok {
		return acquired{seg: s, tracked: true}, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		mu := c.stripe(key)
		mu.Lock()
		defer mu.Unlock()

		if s, ok := c.lru.Get(key); ok {
			return acquired{seg: s, tracked: true}, nil
		}
		if s := c.reattach(key); s != nil {
			return c.admit(key, s), nil
		}

		opts := []Option{WithReadCaching(), WithLogger(c.opts.logger)}
		if c.flusher != nil {
			opts = append(opts, WithDeferredWrites(c.flusher))
		}
		s, err := New(c.st, []byte(key.Row), key.Segment, c.segmentBits, opts...)
		if err != nil {
			return nil, err
		}
		s.onFlushed = c.flushed(key)
		c.loads.Add(1)

		return c.admit(key, s), nil
	})
	if err != nil {
		return acquired{}, err
	}
	return v.(acquired), nil
}

// admit inserts s into the LRU. A refused segment with pending changes stays
// reachable through the retired set.
func (c *Cache) admit(key cache.Key, s *Segment) acquired {
	if c.lru.Add(key, s, int64(c.segmentBits/8)) {
		return acquired{seg: s, tracked: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Dirty() {
		c.retired.Store(key, s)
		return acquired{seg: s, tracked: true}
	}
	return acquired{seg: s}
}

// reattach takes a retired segment back for reuse.
func (c *Cache) reattach(key cache.Key) *Segment {
	v, ok := c.retired.Load(key)
	if !ok {
		return nil
	}
	s := v.(*Segment)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !c.retired.CompareAndDelete(key, s) {
		// Flushed and detached in the meantime; the store is current.
		return nil
	}
	return s
}

// evict runs for every segment dropped from the LRU, before the shard lock is
// released. A dirty segment is retired until flushed; a clean one is detached
// so that writers still holding it retry on a fresh instance.
func (c *Cache) evict(key cache.Key, s *Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Dirty() {
		c.retired.Store(key, s)
		return
	}
	s.detached = true
}

// flushed releases a retired segment once everything it holds is stored.
func (c *Cache) flushed(key cache.Key) func(*Segment) {
	return func(s *Segment) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.Dirty() && c.retired.CompareAndDelete(key, s) {
			s.detached = true
		}
	}
}

// Flush waits for scheduled writes and retries retired segments whose writes
// failed. It returns every error encountered.
func (c *Cache) Flush(ctx context.Context) error {
	if c.flusher == nil {
		return nil
	}

	var errs *multierror.Error
	if err := c.flusher.Drain(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	errs = multierror.Append(errs, c.flushRetired(ctx))
	return errs.ErrorOrNil()
}

func (c *Cache) flushRetired(ctx context.Context) error {
	var errs *multierror.Error
	c.retired.Range(func(_, v any) bool {
		if err := v.(*Segment).Flush(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
		return ctx.Err() == nil
	})
	return errs.ErrorOrNil()
}

// Close flushes all pending writes and drops every cached segment.
func (c *Cache) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.lru == nil {
		return nil
	}

	var errs *multierror.Error
	if err := c.Flush(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}

	c.lru.Purge()
	if err := c.flushRetired(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}

	if c.ownsFlusher {
		if err := c.flusher.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	var st Stats
	st.Loads = c.loads.Load()

	if c.lru != nil {
		ls := c.lru.Stats()
		st.Hits = ls.Hits
		st.Misses = ls.Misses
		st.Evictions = ls.Evictions
		st.Rejected = ls.Rejected
		st.Segments = ls.Len
		st.Bytes = ls.Size
	}

	c.retired.Range(func(_, _ any) bool {
		st.Retired++
		return true
	})

	if c.flusher != nil {
		st.FlusherStats = c.flusher.Stats()
	}
	return st
}
