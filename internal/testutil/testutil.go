package testutil

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

// Alphabet is the default set of letters words are drawn from. It is small
// so that trigrams repeat across values.
const Alphabet = "abcdefgh"

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

func (r *RNG) word(minLen, maxLen int) string {
	n := minLen + r.rand.Intn(maxLen-minLen+1)
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(Alphabet[r.rand.Intn(len(Alphabet))])
	}
	return b.String()
}

// Word returns a word of 2 to 7 letters from Alphabet.
func (r *RNG) Word() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.word(2, 7)
}

// Sentence returns words space-separated words.
func (r *RNG) Sentence(words int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := make([]string, words)
	for i := range parts {
		parts[i] = r.word(2, 7)
	}
	return strings.Join(parts, " ")
}

// Corpus returns n values of the given word count keyed "key-0" to "key-<n-1>".
func (r *RNG) Corpus(n, words int) map[string]string {
	out := make(map[string]string, n)
	for i := range n {
		out[fmt.Sprintf("key-%d", i)] = r.Sentence(words)
	}
	return out
}

// Pattern derives a glob pattern from value: a random substring, optionally
// anchored, with a wildcard inserted at a random position. Every pattern
// matches at least its source value.
func (r *RNG) Pattern(value string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if value == "" {
		return "*"
	}

	start := r.rand.Intn(len(value))
	end := start + 1 + r.rand.Intn(len(value)-start)
	sub := value[start:end]

	if len(sub) > 2 && r.rand.Intn(2) == 0 {
		cut := 1 + r.rand.Intn(len(sub)-1)
		sub = sub[:cut] + "*" + sub[cut:]
	}

	prefix, suffix := "*", "*"
	if start == 0 && r.rand.Intn(2) == 0 {
		prefix = ""
	}
	if end == len(value) && r.rand.Intn(2) == 0 {
		suffix = ""
	}
	return prefix + sub + suffix
}

// BruteForce returns the sorted keys whose value satisfies match.
func BruteForce(corpus map[string]string, match func(value string) bool) []string {
	var out []string
	for k, v := range corpus {
		if match(v) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
