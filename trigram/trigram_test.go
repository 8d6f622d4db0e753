package trigram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigram_CanonicalForm(t *testing.T) {
	tg := New('a', 'b', 'ü')
	assert.Equal(t, []byte{0, 0, 0, 'a', 0, 0, 0, 'b', 0, 0, 0, 0xfc}, tg.Bytes())
	assert.Equal(t, "abü", tg.String())
	assert.Equal(t, [3]rune{'a', 'b', 'ü'}, tg.Runes())
	assert.Equal(t, tg, FromBytes(tg.Bytes()))

	// A short buffer zero-fills the tail.
	assert.Equal(t, New('a', 0, 0), FromBytes([]byte{0, 0, 0, 'a'}))
}

func TestTrigram_Compare(t *testing.T) {
	assert.Equal(t, -1, New('a', 'b', 'c').Compare(New('a', 'b', 'd')))
	assert.Equal(t, 0, New('a', 'b', 'c').Compare(New('a', 'b', 'c')))
	// Unsigned: a code point with a high byte sorts after ASCII.
	assert.Equal(t, 1, New(0x10FFFF, 'a', 'a').Compare(New('z', 'z', 'z')))
}

func TestTrigram_Contains(t *testing.T) {
	tg := New('f', 'o', 'o')
	assert.True(t, tg.Contains(""))
	assert.True(t, tg.Contains("f"))
	assert.True(t, tg.Contains("fo"))
	assert.True(t, tg.Contains("oo"))
	assert.True(t, tg.Contains("foo"))
	assert.False(t, tg.Contains("z"))
	assert.False(t, tg.Contains("fof"))
	assert.False(t, tg.Contains("ooo"))
	assert.False(t, tg.Contains("fooo"))
}

func TestMakeOverlapping(t *testing.T) {
	got := MakeOverlapping("abcdefg", nil)
	require.Len(t, got, 5)
	assert.Equal(t, "abc", got[0].String())
	assert.Equal(t, "efg", got[4].String())

	// Repeats collapse.
	assert.Len(t, MakeOverlapping("aaaaaa", nil), 1)

	// Code points, not bytes.
	got = MakeOverlapping("日本語x", nil)
	require.Len(t, got, 2)
	assert.Equal(t, "日本語", got[0].String())

	assert.Empty(t, MakeOverlapping("ab", nil))
	assert.Empty(t, MakeOverlapping("", ASCIIAugmentation{}))
}

func TestMakeNonOverlapping(t *testing.T) {
	got := MakeNonOverlapping("abcdefgh", nil)
	require.Len(t, got, 2)
	assert.Equal(t, "abc", got[0].String())
	assert.Equal(t, "def", got[1].String())

	assert.Len(t, MakeNonOverlapping("abcabc", nil), 1)

	// Fewer than three code points falls back to augmentation.
	assert.Len(t, MakeNonOverlapping("cd", ASCIIAugmentation{}), 52)
	assert.Empty(t, MakeNonOverlapping("cd", NoAugmentation{}))
}

func TestASCIIAugmentation(t *testing.T) {
	aug := ASCIIAugmentation{}

	assert.Len(t, aug.Augment("z"), 26*26*2-26)

	two := aug.Augment("cd")
	assert.Len(t, two, 52)
	assert.Contains(t, two, New('x', 'c', 'd'))
	assert.Contains(t, two, New('c', 'd', 'x'))

	// "cc" padded with 'c' on either side meets itself once.
	assert.Len(t, aug.Augment("cc"), 51)

	for _, tg := range aug.Augment("q") {
		assert.True(t, tg.Contains("q"))
	}

	assert.Nil(t, aug.Augment(""))
	assert.Nil(t, aug.Augment("abc"))
}

func TestASCIIAugmentation_LetterPaddingOnly(t *testing.T) {
	aug := ASCIIAugmentation{}

	// A fragment inside a trigram, or next to a non-letter, is never padded
	// into that trigram, so values holding it that way are not candidates.
	assert.NotContains(t, aug.Augment("b"), New('a', 'b', 'c'))
	assert.NotContains(t, aug.Augment("ab"), New('-', 'a', 'b'))
	assert.NotContains(t, aug.Augment("ab"), New('a', 'b', ' '))
}

func TestParseAugmentation(t *testing.T) {
	a, err := ParseAugmentation("ascii")
	require.NoError(t, err)
	assert.IsType(t, ASCIIAugmentation{}, a)

	a, err = ParseAugmentation("none")
	require.NoError(t, err)
	assert.IsType(t, NoAugmentation{}, a)

	_, err = ParseAugmentation("latin1")
	assert.Error(t, err)
}
