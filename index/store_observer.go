package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/globdex/codec"
	"github.com/hupe1980/globdex/hashing"
	"github.com/hupe1980/globdex/store"
	"golang.org/x/sync/errgroup"
)

// LongRowKey is the bit store row used in long-row mode.
var LongRowKey = []byte("globdex/bits")

const defaultLookupParallelism = 16

type storeObserverOptions struct {
	longRow     bool
	codec       codec.Codec
	parallelism int
	pageSize    int
}

// StoreObserverOption configures a StoreObserver.
type StoreObserverOption func(*storeObserverOptions)

// WithLongRow stores every bit as a column of one row. This makes the keys
// enumerable at the cost of a single, ever-growing row.
func WithLongRow() StoreObserverOption {
	return func(o *storeObserverOptions) {
		o.longRow = true
	}
}

// WithCodec sets the codec for keys and fields. Default: codec.Default.
func WithCodec(c codec.Codec) StoreObserverOption {
	return func(o *storeObserverOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithLookupParallelism bounds concurrent point reads in ToKeys.
func WithLookupParallelism(n int) StoreObserverOption {
	return func(o *storeObserverOptions) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithEnumerationPageSize sets the scan page size used by Keys.
func WithEnumerationPageSize(n int) StoreObserverOption {
	return func(o *storeObserverOptions) {
		o.pageSize = n
	}
}

// StoreObserver persists values and the bit-to-key table in stores.
//
// The lookup store holds one cell per (key, field) with the raw value. The
// bit store holds the encoded key under the bit's 8-byte big-endian name,
// either in a row of its own or, in long-row mode, as a column of LongRowKey.
type StoreObserver[K, F comparable] struct {
	lookup store.Store
	bits   store.Store
	opts   storeObserverOptions
}

var (
	_ Observer[string, string] = (*StoreObserver[string, string])(nil)
	_ KeyEnumerator[string]    = (*StoreObserver[string, string])(nil)
)

// NewStoreObserver creates an observer over lookup and bits, which may be the
// same store.
func NewStoreObserver[K, F comparable](lookup, bits store.Store, opts ...StoreObserverOption) *StoreObserver[K, F] {
	o := storeObserverOptions{
		codec:       codec.Default,
		parallelism: defaultLookupParallelism,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &StoreObserver[K, F]{
		lookup: lookup,
		bits:   bits,
		opts:   o,
	}
}

func bitName(bit uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, bit)
}

func (s *StoreObserver[K, F]) bitCell(bit uint64) (row, column []byte) {
	name := bitName(bit)
	if s.opts.longRow {
		return LongRowKey, name
	}
	return name, name
}

func (s *StoreObserver[K, F]) decodeKey(data []byte) (K, error) {
	var k K
	if err := s.opts.codec.Unmarshal(data, &k); err != nil {
		return k, fmt.Errorf("%w: decode key: %v", store.ErrCorrupt, err)
	}
	return k, nil
}

func (s *StoreObserver[K, F]) Observe(ctx context.Context, key *hashing.HashableKey[K], field F, value string) error {
	k, err := s.opts.codec.Marshal(key.Key())
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	f, err := s.opts.codec.Marshal(field)
	if err != nil {
		return fmt.Errorf("encode field: %w", err)
	}

	if err := s.lookup.Put(ctx, k, f, []byte(value)); err != nil {
		return err
	}

	row, column := s.bitCell(key.Bit())
	return s.bits.Put(ctx, row, column, k)
}

func (s *StoreObserver[K, F]) ToKey(ctx context.Context, bit uint64) (K, bool, error) {
	var zero K

	row, column := s.bitCell(bit)
	data, err := s.bits.Get(ctx, row, column)
	if errors.Is(err, store.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	k, err := s.decodeKey(data)
	if err != nil {
		return zero, false, err
	}
	return k, true, nil
}

func (s *StoreObserver[K, F]) ToKeys(ctx context.Context, bits []uint64) ([]K, error) {
	type slot struct {
		key K
		ok  bool
	}
	slots := make([]slot, len(bits))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.parallelism)

	for i, b := range bits {
		g.Go(func() error {
			k, ok, err := s.ToKey(ctx, b)
			if err != nil {
				return err
			}
			slots[i] = slot{key: k, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]K, 0, len(bits))
	for _, sl := range slots {
		if sl.ok {
			out = append(out, sl.key)
		}
	}
	return out, nil
}

func (s *StoreObserver[K, F]) Lookup(ctx context.Context, key K, field F) (string, bool, error) {
	k, err := s.opts.codec.Marshal(key)
	if err != nil {
		return "", false, fmt.Errorf("encode key: %w", err)
	}
	f, err := s.opts.codec.Marshal(field)
	if err != nil {
		return "", false, fmt.Errorf("encode field: %w", err)
	}

	v, err := s.lookup.Get(ctx, k, f)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

// Keys visits every key in bit order. It is only supported in long-row mode.
func (s *StoreObserver[K, F]) Keys(ctx context.Context, fn func(key K) error) error {
	if !s.opts.longRow {
		return ErrEnumerationUnsupported
	}

	return s.bits.ScanColumns(ctx, LongRowKey, s.opts.pageSize, func(_, _, value []byte) error {
		k, err := s.decodeKey(value)
		if err != nil {
			return err
		}
		return fn(k)
	})
}
