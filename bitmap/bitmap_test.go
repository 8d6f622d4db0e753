package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type variant struct {
	name string
	make func(t *testing.T, length uint64) Bitmap
}

func variants() []variant {
	return []variant{
		{"dense", func(t *testing.T, length uint64) Bitmap {
			d, err := NewDense(length)
			require.NoError(t, err)
			return d
		}},
		{"segmented", func(t *testing.T, length uint64) Bitmap {
			chunk := uint64(8)
			if length >= 64 {
				chunk = length / 4
			}
			s, err := NewSegmented(length, chunk, DenseFactory)
			require.NoError(t, err)
			return s
		}},
	}
}

func TestBitmap_Contract(t *testing.T) {
	for _, v := range variants() {
		for _, length := range []uint64{8, 32, 256, 1 << 16} {
			b := v.make(t, length)
			assert.Len(t, b.Bytes(), int(length/8), "%s/%d", v.name, length)
			assert.True(t, b.IsEmpty())

			for _, bit := range []uint64{0, length / 2, length - 1} {
				b.Set(bit, true)
				assert.True(t, b.Get(bit), "%s/%d bit %d", v.name, length, bit)
				assert.Contains(t, b.Asserted(), bit)
			}
			assert.False(t, b.IsEmpty())

			b.Clear()
			assert.True(t, b.IsEmpty(), "%s/%d", v.name, length)
			assert.Empty(t, b.Asserted())
			assert.Len(t, b.Bytes(), int(length/8))
		}
	}
}

func TestBitmap_Endianness(t *testing.T) {
	tests := []struct {
		bit  uint64
		want []byte
	}{
		{0, []byte{0x01, 0x00, 0x00, 0x00}},
		{8, []byte{0x00, 0x01, 0x00, 0x00}},
		{31, []byte{0x00, 0x00, 0x00, 0x80}},
	}

	for _, v := range variants() {
		for _, tt := range tests {
			b := v.make(t, 32)
			b.Set(tt.bit, true)
			assert.Equal(t, tt.want, b.Bytes(), "%s bit %d", v.name, tt.bit)

			snap, err := NewSnapshot(b.Bytes(), 32)
			require.NoError(t, err)
			assert.Equal(t, []uint64{tt.bit}, snap.Asserted())
		}
	}
}

func TestBitmap_AndOr(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			x := v.make(t, 64)
			x.SetMany(0, 3)
			y := v.make(t, 64)
			y.SetMany(3, 7)

			and, err := x.And(y)
			require.NoError(t, err)
			assert.Equal(t, []uint64{3}, and.Asserted())

			or, err := x.Or(y)
			require.NoError(t, err)
			assert.Equal(t, []uint64{0, 3, 7}, or.Asserted())

			// Operands are untouched.
			assert.Equal(t, []uint64{0, 3}, x.Asserted())
			assert.Equal(t, []uint64{3, 7}, y.Asserted())

			require.NoError(t, x.MutatingOr(y))
			assert.Equal(t, []uint64{0, 3, 7}, x.Asserted())
			assert.Equal(t, []uint64{3, 7}, y.Asserted())

			require.NoError(t, x.MutatingAnd(y))
			assert.Equal(t, []uint64{3, 7}, x.Asserted())
		})
	}
}

func TestBitmap_AndOrMixedKinds(t *testing.T) {
	d, err := NewDense(64)
	require.NoError(t, err)
	d.SetMany(1, 2, 40)

	snap, err := NewSnapshot([]byte{0x04, 0, 0, 0, 0, 0x01}, 64)
	require.NoError(t, err)

	and, err := d.And(snap)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 40}, and.Asserted())

	s, err := NewSegmented(64, 16, nil)
	require.NoError(t, err)
	require.NoError(t, s.MutatingOr(d))
	assert.Equal(t, d.Asserted(), s.Asserted())
}

func TestBitmap_LengthMismatch(t *testing.T) {
	for _, v := range variants() {
		a := v.make(t, 32)
		b := v.make(t, 64)

		_, err := a.And(b)
		assert.ErrorIs(t, err, ErrLengthMismatch)
		_, err = a.Or(b)
		assert.ErrorIs(t, err, ErrLengthMismatch)
		assert.ErrorIs(t, a.MutatingAnd(b), ErrLengthMismatch)
		assert.ErrorIs(t, a.MutatingOr(b), ErrLengthMismatch)
	}
}

func TestBitmap_Clone(t *testing.T) {
	for _, v := range variants() {
		a := v.make(t, 64)
		a.Set(5, true)

		c := a.Clone()
		c.Set(6, true)
		a.Set(5, false)

		assert.Equal(t, []uint64{5, 6}, c.Asserted(), v.name)
		assert.Empty(t, a.Asserted(), v.name)
		assert.Equal(t, a.Kind(), c.Kind())
	}
}

func TestBitmap_OutOfRange(t *testing.T) {
	for _, v := range variants() {
		b := v.make(t, 32)
		b.Set(32, true)
		assert.False(t, b.Get(32))
		assert.True(t, b.IsEmpty())

		_, err := b.Range(3, 2)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}
}

func TestNewDense_InvalidLength(t *testing.T) {
	_, err := NewDense(12)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = DenseFromBytes(make([]byte, 5), 32)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDenseFromBytes(t *testing.T) {
	d, err := DenseFromBytes([]byte{0x81, 0x02}, 64)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 7, 9}, d.Asserted())
	assert.Equal(t, uint64(3), d.Cardinality())
	assert.Equal(t, []byte{0x81, 0x02, 0, 0, 0, 0, 0, 0}, d.Bytes())

	r, err := d.Range(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00}, r)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "dense", KindDense.String())
	assert.Equal(t, "segmented", KindSegmented.String())
	assert.Equal(t, "store-backed", KindStoreBacked.String())
	assert.Equal(t, "snapshot", KindSnapshot.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
