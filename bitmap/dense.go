package bitmap

import (
	"fmt"

	"github.com/hupe1980/globdex/internal/bitset"
)

// Dense is an in-memory bitmap backed by paged machine words.
// It is safe for concurrent use.
type Dense struct {
	words *bitset.Paged
}

var _ Bitmap = (*Dense)(nil)

// NewDense creates an empty Dense bitmap of length bits.
func NewDense(length uint64) (*Dense, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	return &Dense{words: bitset.New(length)}, nil
}

// DenseFromBytes creates a Dense bitmap of length bits from a little-endian image.
// A short image is zero-extended.
func DenseFromBytes(image []byte, length uint64) (*Dense, error) {
	d, err := NewDense(length)
	if err != nil {
		return nil, err
	}
	if uint64(len(image)) > length/8 {
		return nil, fmt.Errorf("%w: %d byte image for %d bits", ErrInvalidLength, len(image), length)
	}
	d.words.LoadBytes(image)
	return d, nil
}

func (d *Dense) Kind() Kind { return KindDense }

func (d *Dense) Len() uint64 { return d.words.Len() }

func (d *Dense) Get(bit uint64) bool { return d.words.Test(bit) }

func (d *Dense) Set(bit uint64, value bool) {
	if value {
		d.words.Set(bit)
	} else {
		d.words.Unset(bit)
	}
}

func (d *Dense) SetMany(bits ...uint64) {
	for _, b := range bits {
		d.words.Set(b)
	}
}

// Asserted walks set bits with NextSetBit, skipping unallocated pages.
func (d *Dense) Asserted() []uint64 {
	var out []uint64
	for i := d.words.NextSetBit(0); i >= 0; i = d.words.NextSetBit(uint64(i) + 1) {
		out = append(out, uint64(i))
	}
	return out
}

func (d *Dense) Cardinality() uint64 { return d.words.Count() }

func (d *Dense) IsEmpty() bool { return !d.words.Any() }

func (d *Dense) Clear() { d.words.ClearAll() }

func (d *Dense) Bytes() []byte {
	n := d.Len() / 8
	return d.words.AppendBytes(make([]byte, 0, n), 0, n)
}

func (d *Dense) Range(off, n uint64) ([]byte, error) {
	if err := checkRange(d.Len(), off, n); err != nil {
		return nil, err
	}
	return d.words.AppendBytes(make([]byte, 0, n), off, n), nil
}

func (d *Dense) Clone() Bitmap {
	return &Dense{words: d.words.Clone()}
}

func (d *Dense) And(other View) (Bitmap, error) {
	c := d.Clone()
	if err := c.MutatingAnd(other); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Dense) Or(other View) (Bitmap, error) {
	c := d.Clone()
	if err := c.MutatingOr(other); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Dense) MutatingAnd(other View) error {
	return mutatingAnd(d, other)
}

// MutatingOr merges word by word when other is also Dense.
func (d *Dense) MutatingOr(other View) error {
	o, ok := other.(*Dense)
	if !ok {
		return mutatingOr(d, other)
	}
	if err := checkSameLength(d, o); err != nil {
		return err
	}
	words := (d.Len() + 63) / 64
	for w := range words {
		d.words.OrWord(w, o.words.Word(w))
	}
	return nil
}
