package segment

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

// ErrFlusherClosed is returned when submitting to a closed Flusher.
var ErrFlusherClosed = errors.New("segment: flusher closed")

const flushQueueSize = 1024

// FlusherStats holds flusher counters.
type FlusherStats struct {
	// Flushes counts image writes.
	Flushes int64
	// SkippedWrites counts scheduled flushes superseded by a newer change.
	SkippedWrites int64
	// Failures counts flushes that returned an error.
	Failures int64
	// Pending is the number of queued or running flushes.
	Pending int64
}

type flushTask struct {
	seg *Segment
	gen uint64
}

// Flusher runs deferred segment writes on a fixed pool of workers.
type Flusher struct {
	workCh   chan flushTask
	wg       sync.WaitGroup
	closed   atomic.Bool
	submitMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	opts   options

	mu      sync.Mutex // guards pending, idle, errs
	pending int64
	idle    chan struct{}
	errs    *multierror.Error

	flushes  atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
}

// NewFlusher starts workers goroutines. If workers is not positive,
// GOMAXPROCS is used.
func NewFlusher(workers int, opts ...Option) *Flusher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Flusher{
		workCh: make(chan flushTask, flushQueueSize),
		ctx:    ctx,
		cancel: cancel,
		opts:   o,
	}

	f.wg.Add(workers)
	for range workers {
		go f.worker()
	}

	return f
}

func (f *Flusher) worker() {
	defer f.wg.Done()

	for t := range f.workCh {
		f.run(t)
	}
}

func (f *Flusher) run(t flushTask) {
	wrote, err := t.seg.flush(f.ctx, t.gen)
	switch {
	case err != nil:
		f.failures.Add(1)
		err = fmt.Errorf("flush segment %d of row %x: %w", t.seg.index, t.seg.row, err)
		f.opts.logger.Error("segment flush failed", "segment", t.seg.index, "error", err)
	case wrote:
		f.flushes.Add(1)
	default:
		f.skipped.Add(1)
	}
	f.done(err)
}

// submit schedules a flush of s at generation gen. It blocks while the queue
// is full.
func (f *Flusher) submit(ctx context.Context, s *Segment, gen uint64) error {
	f.submitMu.RLock()
	defer f.submitMu.RUnlock()

	if f.closed.Load() {
		return ErrFlusherClosed
	}

	f.begin()
	select {
	case f.workCh <- flushTask{seg: s, gen: gen}:
		return nil
	case <-ctx.Done():
		f.done(nil)
		return ctx.Err()
	}
}

func (f *Flusher) begin() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending == 0 {
		f.idle = make(chan struct{})
	}
	f.pending++
}

func (f *Flusher) done(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.errs = multierror.Append(f.errs, err)
	}
	f.pending--
	if f.pending == 0 {
		close(f.idle)
	}
}

// takeErrs returns and resets the collected errors. f.mu must be held.
func (f *Flusher) takeErrs() error {
	err := f.errs.ErrorOrNil()
	f.errs = nil
	return err
}

// Drain waits until no flush is queued or running and returns the errors of
// all flushes that failed since the previous Drain.
func (f *Flusher) Drain(ctx context.Context) error {
	f.mu.Lock()
	if f.pending == 0 {
		defer f.mu.Unlock()
		return f.takeErrs()
	}
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.takeErrs()
}

// Close runs every queued flush, stops the workers and returns the
// undrained errors. Later submissions fail with ErrFlusherClosed.
func (f *Flusher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	f.submitMu.Lock()
	close(f.workCh)
	f.submitMu.Unlock()

	f.wg.Wait()
	f.cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.takeErrs()
}

// Stats returns the flusher counters.
func (f *Flusher) Stats() FlusherStats {
	f.mu.Lock()
	pending := f.pending
	f.mu.Unlock()

	return FlusherStats{
		Flushes:       f.flushes.Load(),
		SkippedWrites: f.skipped.Load(),
		Failures:      f.failures.Load(),
		Pending:       pending,
	}
}
