package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	img := []byte{0x05, 0x00, 0x80}
	s, err := NewSnapshot(img, 64)
	require.NoError(t, err)

	// Zero-extended to the declared length.
	assert.Len(t, s.Bytes(), 8)
	assert.Equal(t, KindSnapshot, s.Kind())
	assert.Equal(t, []uint64{0, 2, 23}, s.Asserted())
	assert.Equal(t, uint64(3), s.Cardinality())
	assert.True(t, s.Get(23))
	assert.False(t, s.Get(64))
	assert.False(t, s.IsEmpty())

	// The snapshot owns its buffer.
	img[0] = 0
	assert.True(t, s.Get(0))

	d := s.Thaw()
	d.Set(1, true)
	assert.False(t, s.Get(1))
	assert.Equal(t, []uint64{0, 1, 2, 23}, d.Asserted())
}

func TestSnapshot_Invalid(t *testing.T) {
	_, err := NewSnapshot(make([]byte, 9), 64)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = NewSnapshot(nil, 7)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestAssertedBits(t *testing.T) {
	assert.Nil(t, AssertedBits(nil))
	assert.Equal(t, []uint64{7, 8, 63}, AssertedBits([]byte{0x80, 0x01, 0, 0, 0, 0, 0, 0x80}))
}
