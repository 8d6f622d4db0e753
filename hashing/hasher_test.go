package hashing

import (
	"math/big"
	"testing"

	"github.com/hupe1980/globdex/codec"
	"github.com/hupe1980/globdex/trigram"
	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum128_Layout(t *testing.T) {
	data := []byte("hello")
	h1, h2 := murmur3.Sum128WithSeed(data, Seed)

	s := Sum128(data)
	want := new(big.Int).Lsh(new(big.Int).SetUint64(h1), 64)
	want.Or(want, new(big.Int).SetUint64(h2))
	assert.Equal(t, 0, want.Cmp(new(big.Int).SetBytes(s[:])))
}

func TestSum_ModIsUnsigned(t *testing.T) {
	for _, n := range []uint64{1, 7, 1000, 1 << 20, 1<<63 + 5} {
		for _, in := range []string{"", "a", "key-1", "日本語", "zzzzzzzzzzzz"} {
			s := Sum128([]byte(in))
			// A sum with the top bit set must not be read as negative.
			want := new(big.Int).Mod(new(big.Int).SetBytes(s[:]), new(big.Int).SetUint64(n))
			assert.Equal(t, want.Uint64(), s.Mod(n), "n=%d in=%q", n, in)
		}
	}
}

func TestSum_CompareUnsigned(t *testing.T) {
	var lo, hi Sum
	lo[0] = 0x7f
	hi[0] = 0x80
	assert.Equal(t, -1, lo.Compare(hi))
	assert.Equal(t, 1, hi.Compare(lo))
	assert.Equal(t, 0, hi.Compare(hi))
}

func TestHasher(t *testing.T) {
	_, err := NewHasher[string](StringFunnel, 0)
	assert.ErrorIs(t, err, ErrEmptyBitSpace)

	h, err := NewHasher[string](StringFunnel, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), h.TotalBits())

	for _, k := range []string{"0", "1", "2", "key"} {
		b := h.Bit(k)
		assert.Less(t, b, uint64(1000))
		assert.Equal(t, b, h.Bit(k))
		assert.Equal(t, Sum128([]byte(k)), h.Sum(k))
	}

	assert.Equal(t, 0, h.Compare("a", "a"))
	assert.Equal(t, -h.Compare("a", "b"), h.Compare("b", "a"))
}

func TestHashableKey(t *testing.T) {
	h, err := NewHasher[int64](Int64Funnel, 1<<16)
	require.NoError(t, err)

	k := h.Key(42)
	assert.Equal(t, int64(42), k.Key())
	assert.Equal(t, h.Bit(42), k.Bit())
	assert.Equal(t, h.Sum(42), k.Sum())

	b := k.Bytes()
	require.Len(t, b, SumSize)
	b[0] ^= 0xff
	assert.NotEqual(t, b, k.Bytes())
}

func TestFunnelFor(t *testing.T) {
	assert.Equal(t, []byte("abc"), FunnelFor[string](nil)(nil, "abc"))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, FunnelFor[int64](nil)(nil, 256))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, FunnelFor[int](nil)(nil, 256))
	assert.Equal(t, []byte{1}, FunnelFor[bool](nil)(nil, true))

	tg := trigram.New('a', 'b', 'c')
	assert.Equal(t, tg.Bytes(), FunnelFor[trigram.Trigram](nil)(nil, tg))

	type point struct{ X, Y int }
	f := FunnelFor[point](codec.JSON{})
	assert.Equal(t, []byte(`{"X":1,"Y":2}`), f(nil, point{1, 2}))
}

func TestIndexRowKey(t *testing.T) {
	field := Sum128([]byte("0"))
	tg := Sum128(trigram.New('a', 'b', 'c').Bytes())

	row := IndexRowKey(field, tg)
	require.Len(t, row, 2*SumSize)
	assert.Equal(t, field[:], row[:SumSize])
	assert.Equal(t, tg[:], row[SumSize:])
}
