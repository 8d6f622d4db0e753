package globdex

import (
	"github.com/hupe1980/globdex/codec"
	"github.com/hupe1980/globdex/store"
)

type lookupMode uint8

const (
	lookupStore lookupMode = iota
	lookupMemory
)

type options struct {
	codec             codec.Codec
	metricsCollector  MetricsCollector
	logger            *Logger
	lookupMode        lookupMode
	lookupStore       store.Store
	longRow           bool
	retry             *store.RetryConfig
	scanParallelism   int
	lookupParallelism int
}

func defaultOptions() options {
	return options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
}

// Option configures an Index.
type Option func(*options)

// WithCodec configures the codec used for keys and fields that have no
// built-in hash funnel, and for the stored bit-to-key table.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets a collector for operation metrics.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLookupStore keeps indexed values in st instead of the index store.
// The bit-to-key table stays in the index store.
func WithLookupStore(st store.Store) Option {
	return func(o *options) {
		o.lookupMode = lookupStore
		o.lookupStore = st
	}
}

// WithLongRowLookup stores the bit-to-key table as a single row, which lets
// patterns without literal text, such as "*", enumerate every key.
func WithLongRowLookup() Option {
	return func(o *options) {
		o.longRow = true
	}
}

// WithMemoryLookup keeps values and the bit-to-key table in process memory.
// Only trigram rows reach the store; the index does not survive a restart.
func WithMemoryLookup() Option {
	return func(o *options) {
		o.lookupMode = lookupMemory
	}
}

// WithRetry retries transient store failures with exponential backoff.
func WithRetry(cfg store.RetryConfig) Option {
	return func(o *options) {
		o.retry = &cfg
	}
}

// WithScanParallelism bounds the trigram rows a search scans concurrently.
func WithScanParallelism(n int) Option {
	return func(o *options) {
		o.scanParallelism = n
	}
}

// WithLookupParallelism bounds the concurrent point reads that resolve
// candidate bits to keys in the store-backed lookup.
func WithLookupParallelism(n int) Option {
	return func(o *options) {
		o.lookupParallelism = n
	}
}
