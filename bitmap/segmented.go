package bitmap

import (
	"fmt"
	"sync/atomic"
)

type chunk struct {
	Bitmap
}

// Segmented composes same-sized chunk bitmaps into one logical bitmap.
// Chunks are created by a Factory on the first write to their range; reads of
// an absent chunk return false without allocating.
type Segmented struct {
	length    uint64
	chunkBits uint64
	factory   Factory
	chunks    []atomic.Pointer[chunk]
}

var _ Bitmap = (*Segmented)(nil)

// NewSegmented creates a Segmented bitmap of length bits split into chunks of
// chunkBits bits. Both must be multiples of 8 and chunkBits must divide length.
func NewSegmented(length, chunkBits uint64, factory Factory) (*Segmented, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	if err := checkLength(chunkBits); err != nil {
		return nil, err
	}
	if chunkBits == 0 || length%chunkBits != 0 {
		return nil, fmt.Errorf("%w: %d bits is not divisible into %d-bit chunks", ErrInvalidLength, length, chunkBits)
	}
	if factory == nil {
		factory = DenseFactory
	}

	return &Segmented{
		length:    length,
		chunkBits: chunkBits,
		factory:   factory,
		chunks:    make([]atomic.Pointer[chunk], length/chunkBits),
	}, nil
}

// ChunkBits returns the chunk length in bits.
func (s *Segmented) ChunkBits() uint64 { return s.chunkBits }

// chunk returns the chunk at idx, creating it when create is set. Concurrent
// creators race on a CAS; the loser's chunk is dropped before it is written.
func (s *Segmented) chunk(idx uint64, create bool) Bitmap {
	if c := s.chunks[idx].Load(); c != nil {
		return c.Bitmap
	}
	if !create {
		return nil
	}

	b, err := s.factory(s.chunkBits)
	if err != nil {
		// chunkBits was validated in NewSegmented.
		panic(fmt.Sprintf("bitmap: chunk factory: %v", err))
	}
	fresh := &chunk{Bitmap: b}
	if s.chunks[idx].CompareAndSwap(nil, fresh) {
		return b
	}
	return s.chunks[idx].Load().Bitmap
}

func (s *Segmented) Kind() Kind { return KindSegmented }

func (s *Segmented) Len() uint64 { return s.length }

func (s *Segmented) Get(bit uint64) bool {
	if bit >= s.length {
		return false
	}
	c := s.chunk(bit/s.chunkBits, false)
	return c != nil && c.Get(bit%s.chunkBits)
}

func (s *Segmented) Set(bit uint64, value bool) {
	if bit >= s.length {
		return
	}
	c := s.chunk(bit/s.chunkBits, value)
	if c == nil {
		return
	}
	c.Set(bit%s.chunkBits, value)
}

func (s *Segmented) SetMany(bits ...uint64) {
	for _, b := range bits {
		s.Set(b, true)
	}
}

func (s *Segmented) Asserted() []uint64 {
	var out []uint64
	for i := range s.chunks {
		c := s.chunk(uint64(i), false)
		if c == nil {
			continue
		}
		base := uint64(i) * s.chunkBits
		for _, b := range c.Asserted() {
			out = append(out, base+b)
		}
	}
	return out
}

func (s *Segmented) Cardinality() uint64 {
	var n uint64
	for i := range s.chunks {
		if c := s.chunk(uint64(i), false); c != nil {
			n += c.Cardinality()
		}
	}
	return n
}

func (s *Segmented) IsEmpty() bool {
	for i := range s.chunks {
		if c := s.chunk(uint64(i), false); c != nil && !c.IsEmpty() {
			return false
		}
	}
	return true
}

func (s *Segmented) Clear() {
	for i := range s.chunks {
		if c := s.chunk(uint64(i), false); c != nil {
			c.Clear()
		}
	}
}

// Bytes concatenates chunk images, lowest chunk first. Absent chunks are zero.
func (s *Segmented) Bytes() []byte {
	out, _ := s.Range(0, s.length/8)
	return out
}

// Range supports byte ranges that span chunk boundaries.
func (s *Segmented) Range(off, n uint64) ([]byte, error) {
	if err := checkRange(s.length, off, n); err != nil {
		return nil, err
	}

	chunkBytes := s.chunkBits / 8
	out := make([]byte, 0, n)
	idx := off / chunkBytes
	inChunk := off % chunkBytes

	for remaining := n; remaining > 0; idx++ {
		take := min(chunkBytes-inChunk, remaining)
		if c := s.chunk(idx, false); c != nil {
			part, err := c.Range(inChunk, take)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		} else {
			out = append(out, make([]byte, take)...)
		}
		remaining -= take
		inChunk = 0
	}
	return out, nil
}

func (s *Segmented) Clone() Bitmap {
	c := &Segmented{
		length:    s.length,
		chunkBits: s.chunkBits,
		factory:   s.factory,
		chunks:    make([]atomic.Pointer[chunk], len(s.chunks)),
	}
	for i := range s.chunks {
		if b := s.chunk(uint64(i), false); b != nil {
			c.chunks[i].Store(&chunk{Bitmap: b.Clone()})
		}
	}
	return c
}

func (s *Segmented) And(other View) (Bitmap, error) {
	c := s.Clone()
	if err := c.MutatingAnd(other); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Segmented) Or(other View) (Bitmap, error) {
	c := s.Clone()
	if err := c.MutatingOr(other); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Segmented) MutatingAnd(other View) error {
	return mutatingAnd(s, other)
}

func (s *Segmented) MutatingOr(other View) error {
	return mutatingOr(s, other)
}
