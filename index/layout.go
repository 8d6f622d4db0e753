package index

import (
	"fmt"

	"github.com/hupe1980/globdex/bitmap"
	"github.com/hupe1980/globdex/codec"
	"github.com/hupe1980/globdex/hashing"
	"github.com/hupe1980/globdex/trigram"
)

// Layout fixes how keys, fields and trigrams map onto rows and bits. Writers
// and readers of one index must share an equal Layout.
type Layout[K, F comparable] struct {
	totalBits   uint64
	segmentBits uint64

	keys     *hashing.Hasher[K]
	fields   *hashing.Hasher[F]
	trigrams *hashing.Hasher[trigram.Trigram]
}

// NewLayout creates a layout of totalBits key bits split into segments of
// segmentBits. Keys and fields are hashed with their built-in funnel, or the
// encoding of c for types without one.
func NewLayout[K, F comparable](totalBits, segmentBits uint64, c codec.Codec) (*Layout[K, F], error) {
	if segmentBits == 0 || segmentBits%8 != 0 {
		return nil, fmt.Errorf("%w: segment of %d bits", bitmap.ErrInvalidLength, segmentBits)
	}

	keys, err := hashing.NewHasher(hashing.FunnelFor[K](c), totalBits)
	if err != nil {
		return nil, err
	}
	fields, err := hashing.NewHasher(hashing.FunnelFor[F](c), totalBits)
	if err != nil {
		return nil, err
	}
	trigrams, err := hashing.NewHasher(hashing.Funnel[trigram.Trigram](hashing.TrigramFunnel), totalBits)
	if err != nil {
		return nil, err
	}

	return &Layout[K, F]{
		totalBits:   totalBits,
		segmentBits: segmentBits,
		keys:        keys,
		fields:      fields,
		trigrams:    trigrams,
	}, nil
}

// TotalBits returns the size of the key bit space.
func (l *Layout[K, F]) TotalBits() uint64 { return l.totalBits }

// SegmentBits returns the segment length.
func (l *Layout[K, F]) SegmentBits() uint64 { return l.segmentBits }

// Segments returns the number of segments a row spans.
func (l *Layout[K, F]) Segments() uint64 {
	return (l.totalBits + l.segmentBits - 1) / l.segmentBits
}

// Key wraps key with its lazily computed bit.
func (l *Layout[K, F]) Key(key K) *hashing.HashableKey[K] {
	return l.keys.Key(key)
}

// Address splits a key bit into segment index and offset.
func (l *Layout[K, F]) Address(bit uint64) (segment, offset uint64) {
	return bit / l.segmentBits, bit % l.segmentBits
}

// Bit joins a segment index and offset into a key bit.
func (l *Layout[K, F]) Bit(segment, offset uint64) uint64 {
	return segment*l.segmentBits + offset
}

// RowKey returns the row holding the bits of field and t.
func (l *Layout[K, F]) RowKey(field F, t trigram.Trigram) []byte {
	return hashing.IndexRowKey(l.fields.Sum(field), l.trigrams.Sum(t))
}
