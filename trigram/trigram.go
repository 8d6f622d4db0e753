// Package trigram implements the 3-code-point n-gram used as the unit of text
// indexing, and its generation from arbitrary strings.
package trigram

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// N is the number of code points in a trigram.
const N = 3

// Width is the canonical byte width: N big-endian uint32 code points.
const Width = 4 * N

// Trigram is an immutable 3-code-point value. Its array form is the canonical
// byte encoding, so == compares trigrams and byte order is total order.
type Trigram [Width]byte

// New builds a trigram from three code points.
func New(a, b, c rune) Trigram {
	var t Trigram
	binary.BigEndian.PutUint32(t[0:], uint32(a))
	binary.BigEndian.PutUint32(t[4:], uint32(b))
	binary.BigEndian.PutUint32(t[8:], uint32(c))
	return t
}

// FromBytes parses a canonical encoding. Missing trailing bytes are zero and
// bytes past Width are ignored.
func FromBytes(b []byte) Trigram {
	var t Trigram
	copy(t[:], b)
	return t
}

// Bytes returns a copy of the canonical 12-byte encoding.
func (t Trigram) Bytes() []byte {
	return append([]byte(nil), t[:]...)
}

// Runes returns the three code points.
func (t Trigram) Runes() [N]rune {
	return [N]rune{
		rune(binary.BigEndian.Uint32(t[0:])),
		rune(binary.BigEndian.Uint32(t[4:])),
		rune(binary.BigEndian.Uint32(t[8:])),
	}
}

func (t Trigram) String() string {
	var sb strings.Builder
	for _, r := range t.Runes() {
		sb.WriteRune(r)
	}
	return sb.String()
}

// Compare orders trigrams by unsigned byte comparison of their encodings.
func (t Trigram) Compare(o Trigram) int {
	return bytes.Compare(t[:], o[:])
}

// Contains reports whether s occurs in t as a run of adjacent code points. It
// lets a literal too short to search by trigram be tested against one.
func (t Trigram) Contains(s string) bool {
	return strings.Contains(t.String(), s)
}

// MakeOverlapping returns every distinct trigram of text, sliding the window one
// code point at a time, in order of first occurrence. If text yields no
// trigram, aug (when non-nil) supplies the result instead.
func MakeOverlapping(text string, aug Augmentation) []Trigram {
	return generate(text, 1, aug)
}

// MakeNonOverlapping returns the distinct trigrams of consecutive 3-code-point
// windows. A trailing partial window contributes nothing. If text yields no
// trigram, aug (when non-nil) supplies the result instead.
func MakeNonOverlapping(text string, aug Augmentation) []Trigram {
	return generate(text, N, aug)
}

func generate(text string, step int, aug Augmentation) []Trigram {
	rs := []rune(text)

	var out []Trigram
	if len(rs) >= N {
		seen := make(map[Trigram]struct{}, len(rs))
		for i := 0; i+N <= len(rs); i += step {
			t := New(rs[i], rs[i+1], rs[i+2])
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	if len(out) == 0 && aug != nil {
		return aug.Augment(text)
	}
	return out
}
