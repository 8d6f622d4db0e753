package index

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Wildcard matches any sequence of code points.
const Wildcard = '*'

// Pattern is a compiled glob pattern.
type Pattern struct {
	raw       string
	fragments []string
	re        *regexp.Regexp
}

// CompilePattern parses a glob pattern.
func CompilePattern(pattern string) (*Pattern, error) {
	if !utf8.ValidString(pattern) {
		return nil, fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPattern, pattern)
	}

	parts := strings.Split(pattern, string(Wildcard))

	var fragments []string
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
		if p != "" {
			fragments = append(fragments, p)
		}
	}

	re, err := regexp.Compile(`^(?s)` + strings.Join(quoted, ".*") + `$`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	return &Pattern{
		raw:       pattern,
		fragments: fragments,
		re:        re,
	}, nil
}

// String returns the pattern as given.
func (p *Pattern) String() string { return p.raw }

// Fragments returns the non-empty literal runs between wildcards, in order.
func (p *Pattern) Fragments() []string { return p.fragments }

// Exact reports whether the pattern contains no wildcard.
func (p *Pattern) Exact() bool {
	return !strings.ContainsRune(p.raw, Wildcard)
}

// Match reports whether value matches the whole pattern.
func (p *Pattern) Match(value string) bool {
	if p.Exact() {
		return value == p.raw
	}
	return p.re.MatchString(value)
}
