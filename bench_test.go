package globdex_test

import (
	"context"
	"path"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hupe1980/globdex"
	"github.com/hupe1980/globdex/internal/testutil"
	"github.com/hupe1980/globdex/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCorpus(tb testing.TB, idx *globdex.Index[string, string], corpus map[string]string) {
	tb.Helper()
	ctx := context.Background()
	for k, v := range corpus {
		require.NoError(tb, idx.Add(ctx, k, "body", v))
	}
	require.NoError(tb, idx.Flush(ctx))
}

// hasShortFragment reports whether a literal run of pattern is shorter than
// a trigram.
func hasShortFragment(pattern string) bool {
	for _, frag := range strings.Split(pattern, "*") {
		if n := utf8.RuneCountInString(frag); n > 0 && n < 3 {
			return true
		}
	}
	return false
}

// TestIndex_MatchesBruteForce compares random patterns against a full scan.
func TestIndex_MatchesBruteForce(t *testing.T) {
	for _, aug := range []string{"ascii", "none"} {
		t.Run(aug, func(t *testing.T) {
			rng := testutil.NewRNG(4711)
			corpus := rng.Corpus(300, 3)

			cfg := testConfig()
			cfg.Augmentation = aug
			cfg.WriteCoalescing = true
			cfg.CacheBudgetBytes = 16 * int64(cfg.SegmentBits/8)

			idx := open(t, store.NewMemoryStore(), cfg, globdex.WithLongRowLookup())
			loadCorpus(t, idx, corpus)

			keys := make([]string, 0, len(corpus))
			for k := range corpus {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			for i := range 100 {
				pattern := rng.Pattern(corpus[keys[i%len(keys)]])

				want := testutil.BruteForce(corpus, func(v string) bool {
					ok, err := path.Match(pattern, v)
					require.NoError(t, err)
					return ok
				})

				got, err := idx.GlobSearch(context.Background(), "body", pattern)
				require.NoError(t, err, pattern)
				slices.Sort(got)

				// Letter padding cannot reach fragments next to a space, so
				// short fragments may lose matches under ascii augmentation.
				if aug == "ascii" && hasShortFragment(pattern) {
					assert.Subset(t, want, got, pattern)
					continue
				}
				assert.Equal(t, want, got, pattern)
			}
		})
	}
}

func BenchmarkAdd(b *testing.B) {
	ctx := context.Background()
	corpus := testutil.NewRNG(1).Corpus(1000, 6)
	values := make([]string, 0, len(corpus))
	for _, v := range corpus {
		values = append(values, v)
	}

	for _, coalescing := range []bool{false, true} {
		name := "Sync"
		if coalescing {
			name = "Coalescing"
		}
		b.Run(name, func(b *testing.B) {
			cfg := testConfig()
			cfg.WriteCoalescing = coalescing

			idx, err := globdex.New[int, string](store.NewMemoryStore(), cfg, globdex.WithMemoryLookup())
			require.NoError(b, err)
			defer idx.Close(ctx)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; b.Loop(); i++ {
				if err := idx.Add(ctx, i, "body", values[i%len(values)]); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			require.NoError(b, idx.Flush(ctx))
		})
	}
}

func BenchmarkGlobSearch(b *testing.B) {
	ctx := context.Background()
	rng := testutil.NewRNG(2)
	corpus := rng.Corpus(2000, 6)

	idx, err := globdex.New[string, string](store.NewMemoryStore(), testConfig())
	require.NoError(b, err)
	defer idx.Close(ctx)
	loadCorpus(b, idx, corpus)

	patterns := []string{"*abc*", "*ab*cd*", "a*h", "*g*"}

	for _, p := range patterns {
		b.Run(p, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := idx.GlobSearch(ctx, "body", p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
