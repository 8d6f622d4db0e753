package bitmap

import (
	"fmt"
	"math/bits"
)

// Snapshot is a read-only bitmap over an immutable byte image. It lets search
// code test bits of a stored segment without a store round trip per bit.
type Snapshot struct {
	image  []byte
	length uint64
}

var _ View = (*Snapshot)(nil)

// NewSnapshot wraps image as a bitmap of length bits. The image is copied and
// zero-extended to length/8 bytes; a longer image is rejected.
func NewSnapshot(image []byte, length uint64) (*Snapshot, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	if uint64(len(image)) > length/8 {
		return nil, fmt.Errorf("%w: %d byte image for %d bits", ErrInvalidLength, len(image), length)
	}
	buf := make([]byte, length/8)
	copy(buf, image)
	return &Snapshot{image: buf, length: length}, nil
}

func (s *Snapshot) Kind() Kind { return KindSnapshot }

func (s *Snapshot) Len() uint64 { return s.length }

func (s *Snapshot) Get(bit uint64) bool {
	if bit >= s.length {
		return false
	}
	return s.image[bit/8]&(1<<(bit%8)) != 0
}

func (s *Snapshot) Asserted() []uint64 {
	return AssertedBits(s.image)
}

func (s *Snapshot) Cardinality() uint64 {
	var n uint64
	for _, b := range s.image {
		n += uint64(bits.OnesCount8(b))
	}
	return n
}

func (s *Snapshot) IsEmpty() bool {
	for _, b := range s.image {
		if b != 0 {
			return false
		}
	}
	return true
}

func (s *Snapshot) Bytes() []byte {
	return append([]byte(nil), s.image...)
}

func (s *Snapshot) Range(off, n uint64) ([]byte, error) {
	if err := checkRange(s.length, off, n); err != nil {
		return nil, err
	}
	return append([]byte(nil), s.image[off:off+n]...), nil
}

// Thaw returns a mutable Dense copy.
func (s *Snapshot) Thaw() *Dense {
	d, _ := DenseFromBytes(s.image, s.length)
	return d
}

// AssertedBits decodes the set bit positions of a little-endian byte image
// without materializing a bitmap.
func AssertedBits(image []byte) []uint64 {
	var out []uint64
	for i, b := range image {
		for b != 0 {
			tz := bits.TrailingZeros8(b)
			out = append(out, uint64(i)*8+uint64(tz))
			b &= b - 1
		}
	}
	return out
}
