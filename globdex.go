package globdex

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/hupe1980/globdex/index"
	"github.com/hupe1980/globdex/internal/resource"
	"github.com/hupe1980/globdex/segment"
	"github.com/hupe1980/globdex/store"
	"github.com/hupe1980/globdex/trigram"
)

// Stats is a point-in-time view of an Index.
type Stats struct {
	Cache    segment.Stats
	Resource resource.Stats
}

// Index is a trigram glob index over the values of keys of type K under
// fields of type F. It is safe for concurrent use.
type Index[K, F comparable] struct {
	cfg  Config
	opts options

	rc     *resource.Controller
	cache  *segment.Cache
	layout *index.Layout[K, F]
	writer *index.Writer[K, F]
	reader *index.Reader[K, F]

	closed atomic.Bool
}

// New creates an index whose segments and lookup tables live in st.
func New[K, F comparable](st store.Store, cfg Config, optFns ...Option) (*Index[K, F], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	aug, err := trigram.ParseAugmentation(cfg.Augmentation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	layout, err := index.NewLayout[K, F](cfg.TotalBits, cfg.SegmentBits, opts.codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	st = wrapStore(st, cfg, opts)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.CacheBudgetBytes,
		IOLimitBytesPerSec: cfg.IOBytesPerSec,
	})

	cacheOpts := []segment.Option{
		segment.WithBudget(cfg.CacheBudgetBytes),
		segment.WithResourceController(rc),
		segment.WithLogger(opts.logger.Logger),
	}
	if cfg.WriteCoalescing {
		workers := cfg.FlushWorkers
		if workers == 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		cacheOpts = append(cacheOpts, segment.WithWriteCoalescing(workers))
	}

	c, err := segment.NewCache(st, cfg.SegmentBits, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	obs := newObserver[K, F](st, cfg, opts)

	indexOpts := []index.Option{
		index.WithAugmentation(aug),
		index.WithScanParallelism(opts.scanParallelism),
		index.WithLogger(opts.logger.Logger),
	}

	w, err := index.NewWriter(layout, c, obs, indexOpts...)
	if err != nil {
		return nil, err
	}

	opts.logger.Info("index opened",
		"total_bits", cfg.TotalBits,
		"segment_bits", cfg.SegmentBits,
		"segments", layout.Segments(),
		"write_coalescing", cfg.WriteCoalescing,
		"compression", cfg.Compression.String())

	return &Index[K, F]{
		cfg:    cfg,
		opts:   opts,
		rc:     rc,
		cache:  c,
		layout: layout,
		writer: w,
		reader: index.NewReader(layout, st, obs, indexOpts...),
	}, nil
}

// wrapStore applies per-call timeouts, retries and compression, innermost
// first, so that each retry attempt gets its own deadline.
func wrapStore(st store.Store, cfg Config, opts options) store.Store {
	st = store.WithTimeout(st, cfg.StoreTimeout)
	if opts.retry != nil {
		rcfg := *opts.retry
		if rcfg.Logger == nil {
			rcfg.Logger = opts.logger.Logger
		}
		st = store.RetryingWithConfig(st, rcfg)
	}
	return store.Compressed(st, cfg.Compression)
}

func newObserver[K, F comparable](st store.Store, cfg Config, opts options) index.Observer[K, F] {
	if opts.lookupMode == lookupMemory {
		return index.NewMemoryObserver[K, F]()
	}

	lookup := st
	if opts.lookupStore != nil {
		lookup = wrapStore(opts.lookupStore, cfg, opts)
	}

	obsOpts := []index.StoreObserverOption{
		index.WithCodec(opts.codec),
		index.WithLookupParallelism(opts.lookupParallelism),
	}
	if opts.longRow {
		obsOpts = append(obsOpts, index.WithLongRow())
	}
	return index.NewStoreObserver[K, F](lookup, st, obsOpts...)
}

// Config returns the configuration the index was opened with.
func (x *Index[K, F]) Config() Config { return x.cfg }

// Add indexes value under key and field. A failed Add returns *ErrIndexWrite
// and may be repeated.
func (x *Index[K, F]) Add(ctx context.Context, key K, field F, value string) (err error) {
	if x.closed.Load() {
		return ErrClosed
	}

	start := time.Now()
	defer func() {
		x.opts.metricsCollector.RecordAdd(len(value), time.Since(start), err)
	}()

	hk := x.layout.Key(key)
	err = translateError(x.writer.AddKey(ctx, hk, field, value))
	x.opts.logger.LogAdd(ctx, hk.Bit(), len(value), err)
	return err
}

// GlobSearch returns the keys whose value under field matches pattern, in
// unspecified order. '*' matches any run of characters; everything else is
// literal. Writes deferred by WriteCoalescing are visible after Flush.
func (x *Index[K, F]) GlobSearch(ctx context.Context, field F, pattern string) (keys []K, err error) {
	if x.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	defer func() {
		d := time.Since(start)
		x.opts.metricsCollector.RecordSearch(len(keys), d, err)
		x.opts.logger.WithField(field).LogSearch(ctx, pattern, len(keys), d, err)
	}()

	keys, err = x.reader.GlobSearch(ctx, field, pattern)
	return keys, translateError(err)
}

// Flush waits until every deferred segment write is stored.
func (x *Index[K, F]) Flush(ctx context.Context) (err error) {
	if x.closed.Load() {
		return ErrClosed
	}

	start := time.Now()
	defer func() {
		d := time.Since(start)
		x.opts.metricsCollector.RecordFlush(d, err)
		x.opts.logger.LogFlush(ctx, d, err)
	}()

	return translateError(x.writer.Flush(ctx))
}

// Close flushes pending writes and releases the segment cache. Further calls
// return ErrClosed.
func (x *Index[K, F]) Close(ctx context.Context) error {
	if !x.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	err := translateError(x.cache.Close(ctx))
	if err != nil {
		x.opts.logger.Error("index closed with unflushed writes", "error", err)
		return err
	}

	x.opts.logger.Info("index closed")
	return nil
}

// Stats returns cache, flusher and resource counters.
func (x *Index[K, F]) Stats() Stats {
	return Stats{
		Cache:    x.cache.Stats(),
		Resource: x.rc.Stats(),
	}
}
