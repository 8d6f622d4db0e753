package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/globdex/bitmap"
	"github.com/hupe1980/globdex/segment"
	"github.com/hupe1980/globdex/store"
	"github.com/hupe1980/globdex/trigram"
	"golang.org/x/sync/errgroup"
)

// Lookup is what a Reader needs to turn candidate bits into results.
type Lookup[K, F comparable] interface {
	KeyLookup[K]
	DataLookup[K, F]
}

// Reader answers glob queries by scanning segment rows in st.
type Reader[K, F comparable] struct {
	layout *Layout[K, F]
	st     store.Store
	lookup Lookup[K, F]
	opts   options
}

// NewReader creates a reader over the rows a Writer with an equal layout
// stored in st.
func NewReader[K, F comparable](layout *Layout[K, F], st store.Store, lookup Lookup[K, F], opts ...Option) *Reader[K, F] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Reader[K, F]{
		layout: layout,
		st:     st,
		lookup: lookup,
		opts:   o,
	}
}

// GlobSearch returns the keys whose value under field matches pattern.
// Results are unique; their order is unspecified.
func (r *Reader[K, F]) GlobSearch(ctx context.Context, field F, pattern string) ([]K, error) {
	p, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	candidates, constrained, err := r.candidates(ctx, field, p)
	if err != nil {
		return nil, err
	}

	if !constrained {
		return r.enumerate(ctx, field, p)
	}
	if candidates.IsEmpty() {
		return nil, nil
	}

	keys, err := r.lookup.ToKeys(ctx, candidates.ToArray())
	if err != nil {
		return nil, fmt.Errorf("index: resolve %d candidate bits: %w", candidates.GetCardinality(), err)
	}

	r.opts.logger.Debug("glob candidates",
		"pattern", pattern,
		"bits", candidates.GetCardinality(),
		"keys", len(keys))

	return r.verify(ctx, field, p, dedup(keys))
}

// candidates intersects the bit sets of all fragments. constrained is false
// when no fragment produced a trigram.
func (r *Reader[K, F]) candidates(ctx context.Context, field F, p *Pattern) (*roaring64.Bitmap, bool, error) {
	var result *roaring64.Bitmap

	for _, trigrams := range r.fragmentTrigrams(p) {
		bits, err := r.fragmentBits(ctx, field, trigrams)
		if err != nil {
			return nil, false, err
		}

		if result == nil {
			result = bits
		} else {
			result.And(bits)
		}
		if result.IsEmpty() {
			break
		}
	}

	return result, result != nil, nil
}

// fragmentTrigrams returns the trigrams to scan for each constraining
// fragment. A short fragment found inside a trigram of a longer fragment is
// implied by it, so its augmented rows are not scanned.
func (r *Reader[K, F]) fragmentTrigrams(p *Pattern) [][]trigram.Trigram {
	var (
		exact []trigram.Trigram
		short []string
		out   [][]trigram.Trigram
	)

	for _, frag := range p.Fragments() {
		if utf8.RuneCountInString(frag) < trigram.N {
			short = append(short, frag)
			continue
		}
		trigrams := trigram.MakeNonOverlapping(frag, nil)
		exact = append(exact, trigrams...)
		out = append(out, trigrams)
	}

	for _, frag := range short {
		if slices.ContainsFunc(exact, func(t trigram.Trigram) bool { return t.Contains(frag) }) {
			continue
		}
		if trigrams := trigram.MakeNonOverlapping(frag, r.opts.augmentation); len(trigrams) > 0 {
			out = append(out, trigrams)
		}
		// Otherwise too short and not augmented; verification decides.
	}
	return out
}

// fragmentBits unions the asserted bits of every trigram row.
func (r *Reader[K, F]) fragmentBits(ctx context.Context, field F, trigrams []trigram.Trigram) (*roaring64.Bitmap, error) {
	var (
		mu     sync.Mutex
		result = roaring64.New()
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.scanParallelism)

	for _, t := range trigrams {
		g.Go(func() error {
			rowBits, err := r.rowBits(ctx, r.layout.RowKey(field, t))
			if err != nil {
				return fmt.Errorf("index: scan trigram %q: %w", t.String(), err)
			}

			mu.Lock()
			result.Or(rowBits)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// rowBits collects the key bits asserted in any segment of row.
func (r *Reader[K, F]) rowBits(ctx context.Context, row []byte) (*roaring64.Bitmap, error) {
	bits := roaring64.New()

	err := r.st.ScanColumns(ctx, row, r.opts.scanPageSize, func(_, column, value []byte) error {
		seg, err := segment.ParseColumn(column)
		if err != nil {
			return err
		}
		snap, err := bitmap.NewSnapshot(value, r.layout.SegmentBits())
		if err != nil {
			return fmt.Errorf("%w: segment %d: %v", store.ErrCorrupt, seg, err)
		}
		for _, off := range snap.Asserted() {
			bits.Add(r.layout.Bit(seg, off))
		}
		return nil
	})
	return bits, err
}

// enumerate answers patterns without usable literal text by checking every
// key the lookup can list.
func (r *Reader[K, F]) enumerate(ctx context.Context, field F, p *Pattern) ([]K, error) {
	e, ok := r.lookup.(KeyEnumerator[K])
	if !ok {
		return nil, fmt.Errorf("%w: pattern %q", ErrEnumerationUnsupported, p.String())
	}

	var keys []K
	err := e.Keys(ctx, func(k K) error {
		keys = append(keys, k)
		return nil
	})
	if errors.Is(err, ErrEnumerationUnsupported) {
		return nil, fmt.Errorf("%w: pattern %q", err, p.String())
	}
	if err != nil {
		return nil, err
	}

	return r.verify(ctx, field, p, dedup(keys))
}

// verify keeps the keys whose value under field matches p.
func (r *Reader[K, F]) verify(ctx context.Context, field F, p *Pattern, keys []K) ([]K, error) {
	var out []K
	for _, k := range keys {
		v, ok, err := r.lookup.Lookup(ctx, k, field)
		if err != nil {
			return nil, fmt.Errorf("index: lookup candidate: %w", err)
		}
		if ok && p.Match(v) {
			out = append(out, k)
		}
	}
	return out, nil
}

func dedup[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
