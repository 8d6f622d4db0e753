package index

import (
	"context"
	"fmt"

	"github.com/hupe1980/globdex/hashing"
	"github.com/hupe1980/globdex/segment"
	"github.com/hupe1980/globdex/trigram"
)

// Writer adds entries to the index.
type Writer[K, F comparable] struct {
	layout   *Layout[K, F]
	segments *segment.Cache
	observer KeyObserver[K, F]
	opts     options
}

// NewWriter creates a writer storing segments through segments, whose
// segment length must match layout.
func NewWriter[K, F comparable](layout *Layout[K, F], segments *segment.Cache, observer KeyObserver[K, F], opts ...Option) (*Writer[K, F], error) {
	if segments.SegmentBits() != layout.SegmentBits() {
		return nil, fmt.Errorf("index: cache segments of %d bits, layout wants %d", segments.SegmentBits(), layout.SegmentBits())
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Writer[K, F]{
		layout:   layout,
		segments: segments,
		observer: observer,
		opts:     o,
	}, nil
}

// Add indexes value under key and field. The observer sees the entry before
// any trigram bit is set. Failed bit assertions return a *WriteError; calling
// Add again with the same arguments is safe.
func (w *Writer[K, F]) Add(ctx context.Context, key K, field F, value string) error {
	return w.AddKey(ctx, w.layout.Key(key), field, value)
}

// AddKey is Add for a key already hashed with the writer's layout.
func (w *Writer[K, F]) AddKey(ctx context.Context, hk *hashing.HashableKey[K], field F, value string) error {
	seg, offset := w.layout.Address(hk.Bit())

	if err := w.observer.Observe(ctx, hk, field, value); err != nil {
		return fmt.Errorf("index: observe key: %w", err)
	}

	for _, t := range trigram.MakeOverlapping(value, w.opts.augmentation) {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.segments.Set(ctx, w.layout.RowKey(field, t), seg, offset); err != nil {
			w.opts.logger.Debug("trigram bit assertion failed",
				"bit", hk.Bit(),
				"segment", seg,
				"trigram", t.String(),
				"error", err)

			return &WriteError{Bit: hk.Bit(), Segment: seg, Trigram: t, Err: err}
		}
	}
	return nil
}

// Flush waits until every deferred segment write is stored.
func (w *Writer[K, F]) Flush(ctx context.Context) error {
	return w.segments.Flush(ctx)
}
