package hashing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/bits"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Seed is the MurmurHash3 seed every index is built with.
const Seed = 543231

// SumSize is the size of a canonical hash in bytes.
const SumSize = 16

// ErrEmptyBitSpace is returned for a zero-sized bit space.
var ErrEmptyBitSpace = errors.New("hashing: bit space must not be empty")

// Sum is a canonical 128-bit hash: h1 then h2, each big-endian.
type Sum [SumSize]byte

// Sum128 hashes data with the index seed.
func Sum128(data []byte) Sum {
	h1, h2 := murmur3.Sum128WithSeed(data, Seed)
	var s Sum
	binary.BigEndian.PutUint64(s[0:], h1)
	binary.BigEndian.PutUint64(s[8:], h2)
	return s
}

// Mod reduces the sum, as an unsigned 128-bit integer, modulo n.
func (s Sum) Mod(n uint64) uint64 {
	hi := binary.BigEndian.Uint64(s[0:])
	lo := binary.BigEndian.Uint64(s[8:])
	return bits.Rem64(hi, lo, n)
}

// Compare orders sums by unsigned byte comparison.
func (s Sum) Compare(o Sum) int {
	return bytes.Compare(s[:], o[:])
}

// Hasher maps values of type T into a bit space of totalBits bits.
// It is safe for concurrent use.
type Hasher[T any] struct {
	funnel    Funnel[T]
	totalBits uint64
	pool      sync.Pool
}

// NewHasher creates a Hasher feeding values through funnel.
func NewHasher[T any](funnel Funnel[T], totalBits uint64) (*Hasher[T], error) {
	if totalBits == 0 {
		return nil, ErrEmptyBitSpace
	}
	h := &Hasher[T]{funnel: funnel, totalBits: totalBits}
	h.pool.New = func() any {
		b := make([]byte, 0, 64)
		return &b
	}
	return h, nil
}

// TotalBits returns the size of the bit space.
func (h *Hasher[T]) TotalBits() uint64 { return h.totalBits }

// Sum returns the canonical hash of v.
func (h *Hasher[T]) Sum(v T) Sum {
	bp := h.pool.Get().(*[]byte)
	*bp = h.funnel((*bp)[:0], v)
	s := Sum128(*bp)
	h.pool.Put(bp)
	return s
}

// Bit returns the bit position of v.
func (h *Hasher[T]) Bit(v T) uint64 {
	return h.Sum(v).Mod(h.totalBits)
}

// Compare orders values by their canonical hash bytes.
func (h *Hasher[T]) Compare(a, b T) int {
	return h.Sum(a).Compare(h.Sum(b))
}

// Key wraps v; its hash is computed on first use.
func (h *Hasher[T]) Key(v T) *HashableKey[T] {
	return &HashableKey[T]{hasher: h, key: v}
}

// HashableKey is a value with its lazily computed, memoized hash and bit.
type HashableKey[T any] struct {
	hasher *Hasher[T]
	key    T

	once sync.Once
	sum  Sum
	bit  uint64
}

func (k *HashableKey[T]) compute() {
	k.once.Do(func() {
		k.sum = k.hasher.Sum(k.key)
		k.bit = k.sum.Mod(k.hasher.totalBits)
	})
}

// Key returns the wrapped value.
func (k *HashableKey[T]) Key() T { return k.key }

// Bit returns hash(key) mod totalBits.
func (k *HashableKey[T]) Bit() uint64 {
	k.compute()
	return k.bit
}

// Sum returns the canonical hash.
func (k *HashableKey[T]) Sum() Sum {
	k.compute()
	return k.sum
}

// Bytes returns a copy of the canonical hash bytes.
func (k *HashableKey[T]) Bytes() []byte {
	s := k.Sum()
	return append([]byte(nil), s[:]...)
}

// IndexRowKey combines a field hash and a trigram hash into the 32-byte row
// key of the (field, trigram) bit vector.
func IndexRowKey(field, trigram Sum) []byte {
	row := make([]byte, 0, 2*SumSize)
	row = append(row, field[:]...)
	return append(row, trigram[:]...)
}
