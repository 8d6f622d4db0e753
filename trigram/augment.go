package trigram

import (
	"fmt"
	"unicode/utf8"
)

// Augmentation supplies candidate trigrams for text too short to form one.
// The result must be a superset of the trigrams of any string containing text.
type Augmentation interface {
	Augment(text string) []Trigram
}

// ASCIIAugmentation pads text of one or two code points with every combination
// of lowercase ASCII letters, before and after, up to trigram length.
//
// Only letters are padded, and only at the edges. Text next to a non-letter,
// or in the middle of a trigram, has no padded trigram and is not found. Use
// NoAugmentation when such values must match.
type ASCIIAugmentation struct{}

const (
	minLetter = 'a'
	maxLetter = 'z'
)

// Augment implements Augmentation. Text outside 1-2 code points yields nothing.
func (ASCIIAugmentation) Augment(text string) []Trigram {
	n := utf8.RuneCountInString(text)
	if n < 1 || n >= N {
		return nil
	}

	seen := make(map[Trigram]struct{})
	var out []Trigram
	add := func(s string) {
		for _, t := range MakeOverlapping(s, nil) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	for _, pad := range padding(N - n) {
		add(pad + text)
		add(text + pad)
	}
	return out
}

// padding returns every lowercase string of exactly size letters, in
// lexicographic order.
func padding(size int) []string {
	out := []string{""}
	for range size {
		next := make([]string, 0, len(out)*(maxLetter-minLetter+1))
		for _, p := range out {
			for c := minLetter; c <= maxLetter; c++ {
				next = append(next, p+string(rune(c)))
			}
		}
		out = next
	}
	return out
}

// NoAugmentation produces no trigrams; short fragments impose no constraint
// and are left to verification.
type NoAugmentation struct{}

// Augment implements Augmentation.
func (NoAugmentation) Augment(string) []Trigram { return nil }

// ParseAugmentation resolves a strategy name: "ascii" or "none".
func ParseAugmentation(name string) (Augmentation, error) {
	switch name {
	case "", "ascii":
		return ASCIIAugmentation{}, nil
	case "none":
		return NoAugmentation{}, nil
	default:
		return nil, fmt.Errorf("trigram: unknown augmentation %q", name)
	}
}
