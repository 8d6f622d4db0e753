package globdex

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/globdex/store"
	"github.com/hupe1980/globdex/trigram"
)

// Config describes the bit layout and runtime behavior of an Index.
//
// TotalBits and SegmentBits fix the layout of the stored rows. Changing either
// for an existing store invalidates every bit written so far.
type Config struct {
	// TotalBits is the size of the key bit space.
	TotalBits uint64

	// SegmentBits is the length of one stored segment. It must be a multiple
	// of 8 that divides TotalBits.
	SegmentBits uint64

	// CacheBudgetBytes bounds the memory held by cached segment images.
	// 0 disables the cache: every write is a synchronous read-modify-write.
	CacheBudgetBytes int64

	// WriteCoalescing defers segment writes to background flush workers so
	// that repeated assertions on one segment collapse into fewer puts.
	WriteCoalescing bool

	// FlushWorkers is the number of background flush workers.
	// 0 means GOMAXPROCS. Ignored unless WriteCoalescing is set.
	FlushWorkers int

	// Augmentation selects the short-fragment strategy: "ascii" or "none".
	Augmentation string

	// IOBytesPerSec caps background flush throughput. 0 means unlimited.
	IOBytesPerSec int64

	// StoreTimeout bounds every store call. 0 means no timeout.
	StoreTimeout time.Duration

	// Compression selects the frame compression of stored cells.
	Compression store.CompressionType
}

// DefaultConfig returns a configuration suitable for a few million keys.
func DefaultConfig() Config {
	return Config{
		TotalBits:        1 << 30,
		SegmentBits:      1 << 20,
		CacheBudgetBytes: 64 << 20,
		Augmentation:     "ascii",
		Compression:      store.CompressionZSTD,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.TotalBits == 0:
		return fmt.Errorf("%w: total bits must be positive", ErrInvalidConfig)
	case c.SegmentBits == 0 || c.SegmentBits%8 != 0:
		return fmt.Errorf("%w: segment bits %d must be a positive multiple of 8", ErrInvalidConfig, c.SegmentBits)
	case c.TotalBits%c.SegmentBits != 0:
		return fmt.Errorf("%w: total bits %d not divisible by segment bits %d", ErrInvalidConfig, c.TotalBits, c.SegmentBits)
	case c.CacheBudgetBytes < 0:
		return fmt.Errorf("%w: negative cache budget", ErrInvalidConfig)
	case c.FlushWorkers < 0:
		return fmt.Errorf("%w: negative flush workers", ErrInvalidConfig)
	case c.IOBytesPerSec < 0:
		return fmt.Errorf("%w: negative io rate", ErrInvalidConfig)
	case c.StoreTimeout < 0:
		return fmt.Errorf("%w: negative store timeout", ErrInvalidConfig)
	case c.Compression > store.CompressionZSTD:
		return fmt.Errorf("%w: unknown compression %s", ErrInvalidConfig, c.Compression)
	}

	if _, err := trigram.ParseAugmentation(c.Augmentation); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfigFromEnv returns DefaultConfig overridden by the environment
// variables <PREFIX>_TOTAL_BITS, _SEGMENT_BITS, _CACHE_BUDGET, _WRITE_COALESCING,
// _FLUSH_WORKERS, _AUGMENTATION, _IO_BYTES_PER_SEC, _STORE_TIMEOUT and
// _COMPRESSION. Sizes accept human units such as "64 MiB".
func LoadConfigFromEnv(prefix string) (Config, error) {
	cfg := DefaultConfig()

	env := func(name string) (string, bool) {
		v, ok := os.LookupEnv(prefix + "_" + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := env("TOTAL_BITS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_TOTAL_BITS: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.TotalBits = n
	}

	if v, ok := env("SEGMENT_BITS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_SEGMENT_BITS: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.SegmentBits = n
	}

	if v, ok := env("CACHE_BUDGET"); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_CACHE_BUDGET: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.CacheBudgetBytes = int64(n)
	}

	if v, ok := env("WRITE_COALESCING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_WRITE_COALESCING: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.WriteCoalescing = b
	}

	if v, ok := env("FLUSH_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_FLUSH_WORKERS: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.FlushWorkers = n
	}

	if v, ok := env("AUGMENTATION"); ok {
		cfg.Augmentation = strings.ToLower(v)
	}

	if v, ok := env("IO_BYTES_PER_SEC"); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_IO_BYTES_PER_SEC: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.IOBytesPerSec = int64(n)
	}

	if v, ok := env("STORE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse %s_STORE_TIMEOUT: %w", ErrInvalidConfig, prefix, err)
		}
		cfg.StoreTimeout = d
	}

	if v, ok := env("COMPRESSION"); ok {
		ct, err := parseCompression(v)
		if err != nil {
			return cfg, err
		}
		cfg.Compression = ct
	}

	return cfg, cfg.Validate()
}

func parseCompression(name string) (store.CompressionType, error) {
	for _, ct := range []store.CompressionType{store.CompressionNone, store.CompressionLZ4, store.CompressionZSTD} {
		if strings.EqualFold(name, ct.String()) {
			return ct, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, name)
}
