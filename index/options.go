package index

import (
	"log/slog"

	"github.com/hupe1980/globdex/trigram"
)

const (
	// DefaultScanPageSize is the number of segments fetched per scan round trip.
	DefaultScanPageSize = 64

	// DefaultScanParallelism bounds concurrent row scans per fragment.
	DefaultScanParallelism = 8
)

type options struct {
	augmentation    trigram.Augmentation
	scanPageSize    int
	scanParallelism int
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		augmentation:    trigram.ASCIIAugmentation{},
		scanPageSize:    DefaultScanPageSize,
		scanParallelism: DefaultScanParallelism,
		logger:          slog.New(slog.DiscardHandler),
	}
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithAugmentation sets the strategy for text shorter than a trigram.
// Writer and Reader of one index must use the same strategy.
func WithAugmentation(a trigram.Augmentation) Option {
	return func(o *options) {
		if a != nil {
			o.augmentation = a
		}
	}
}

// WithScanPageSize sets the number of segments read per store round trip.
func WithScanPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.scanPageSize = n
		}
	}
}

// WithScanParallelism bounds the rows scanned concurrently for one fragment.
func WithScanParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.scanParallelism = n
		}
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
