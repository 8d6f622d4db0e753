package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig tunes RetryingStore.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries bounds retries per call; 0 means no bound other than MaxElapsed.
	MaxRetries uint64
	MaxElapsed time.Duration
	Logger     *slog.Logger
}

// DefaultRetryConfig returns conservative retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxRetries:      5,
		MaxElapsed:      30 * time.Second,
	}
}

// RetryingStore retries calls that fail with ErrUnavailable or ErrTimeout,
// using exponential backoff with jitter. Other errors return immediately.
//
// Scans are not retried: cells already visited would be visited again.
type RetryingStore struct {
	inner Store
	cfg   RetryConfig
}

var _ Store = (*RetryingStore)(nil)

// Retrying wraps inner with DefaultRetryConfig.
func Retrying(inner Store) *RetryingStore {
	return RetryingWithConfig(inner, DefaultRetryConfig())
}

// RetryingWithConfig wraps inner with cfg.
func RetryingWithConfig(inner Store, cfg RetryConfig) *RetryingStore {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &RetryingStore{inner: inner, cfg: cfg}
}

// Retryable reports whether err is a transient store failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

func (r *RetryingStore) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.InitialInterval
	eb.MaxInterval = r.cfg.MaxInterval
	eb.MaxElapsedTime = r.cfg.MaxElapsed

	var b backoff.BackOff = eb
	if r.cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, r.cfg.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

func (r *RetryingStore) do(ctx context.Context, op string, fn func() error) error {
	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, r.newBackOff(ctx), func(err error, wait time.Duration) {
		r.cfg.Logger.Warn("store call failed, retrying", "op", op, "error", err, "wait", wait)
	})
}

func (r *RetryingStore) Put(ctx context.Context, row, column, value []byte) error {
	return r.do(ctx, "put", func() error {
		return r.inner.Put(ctx, row, column, value)
	})
}

func (r *RetryingStore) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "get", func() error {
		var err error
		out, err = r.inner.Get(ctx, row, column)
		return err
	})
	return out, err
}

func (r *RetryingStore) Delete(ctx context.Context, row, column []byte) error {
	return r.do(ctx, "delete", func() error {
		return r.inner.Delete(ctx, row, column)
	})
}

func (r *RetryingStore) ScanColumns(ctx context.Context, row []byte, pageSize int, fn VisitFunc) error {
	return r.inner.ScanColumns(ctx, row, pageSize, fn)
}
