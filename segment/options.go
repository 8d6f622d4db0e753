package segment

import (
	"log/slog"

	"github.com/hupe1980/globdex/internal/resource"
)

type options struct {
	readCaching bool
	flusher     *Flusher
	workers     int
	budget      int64
	rc          *resource.Controller
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.DiscardHandler),
	}
}

// Option configures a Segment, Flusher or Cache.
type Option func(*options)

// WithReadCaching keeps the image in memory after the first read until the
// segment is cleared.
func WithReadCaching() Option {
	return func(o *options) {
		o.readCaching = true
	}
}

// WithDeferredWrites routes persistence through f. Segments retain their
// image in memory while writes are pending.
func WithDeferredWrites(f *Flusher) Option {
	return func(o *options) {
		o.flusher = f
	}
}

// WithWriteCoalescing makes a Cache start its own Flusher with the given
// number of workers. Ignored when WithDeferredWrites supplies a Flusher.
func WithWriteCoalescing(workers int) Option {
	return func(o *options) {
		if workers <= 0 {
			workers = 1
		}
		o.workers = workers
	}
}

// WithBudget sets the cache memory budget in bytes. A budget smaller than one
// segment image disables caching.
func WithBudget(bytes int64) Option {
	return func(o *options) {
		o.budget = bytes
	}
}

// WithResourceController accounts cached images and throttles flush IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
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
