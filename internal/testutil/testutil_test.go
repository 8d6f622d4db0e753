package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorpus(t *testing.T) {
	rng := NewRNG(4711)

	c := rng.Corpus(8, 3)

	assert.Len(t, c, 8)
	assert.Contains(t, c, "key-7")
	for _, v := range c {
		assert.Len(t, strings.Fields(v), 3)
	}
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(4711)
	first := rng.Sentence(4)

	rng.Reset()
	assert.Equal(t, first, rng.Sentence(4))
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestPattern_MatchesSource(t *testing.T) {
	rng := NewRNG(42)

	for range 200 {
		v := rng.Sentence(3)
		p := rng.Pattern(v)

		parts := strings.Split(p, "*")
		rest := v
		ok := strings.HasPrefix(rest, parts[0])
		rest = rest[len(parts[0]):]
		for _, part := range parts[1:] {
			i := strings.Index(rest, part)
			if i < 0 {
				ok = false
				break
			}
			rest = rest[i+len(part):]
		}
		assert.True(t, ok, "%q does not match %q", p, v)
	}
}

func TestBruteForce(t *testing.T) {
	got := BruteForce(map[string]string{"b": "x1", "a": "x2", "c": "y"}, func(v string) bool {
		return strings.HasPrefix(v, "x")
	})
	assert.Equal(t, []string{"a", "b"}, got)
}
