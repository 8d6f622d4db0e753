package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutStore bounds every call to the inner store with a deadline. A call
// that exceeds it fails with ErrTimeout; the deadline of the caller's context
// still applies and is reported as is.
type TimeoutStore struct {
	inner   Store
	timeout time.Duration
}

var _ Store = (*TimeoutStore)(nil)

// WithTimeout wraps inner. A non-positive timeout returns inner unchanged.
func WithTimeout(inner Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return inner
	}
	return &TimeoutStore{inner: inner, timeout: timeout}
}

func (t *TimeoutStore) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := fn(tctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, op, t.timeout)
	}
	return err
}

func (t *TimeoutStore) Put(ctx context.Context, row, column, value []byte) error {
	return t.do(ctx, "put", func(ctx context.Context) error {
		return t.inner.Put(ctx, row, column, value)
	})
}

func (t *TimeoutStore) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	var out []byte
	err := t.do(ctx, "get", func(ctx context.Context) error {
		var err error
		out, err = t.inner.Get(ctx, row, column)
		return err
	})
	return out, err
}

func (t *TimeoutStore) Delete(ctx context.Context, row, column []byte) error {
	return t.do(ctx, "delete", func(ctx context.Context) error {
		return t.inner.Delete(ctx, row, column)
	})
}

// ScanColumns applies the timeout to the whole scan.
func (t *TimeoutStore) ScanColumns(ctx context.Context, row []byte, pageSize int, fn VisitFunc) error {
	return t.do(ctx, "scan", func(ctx context.Context) error {
		return t.inner.ScanColumns(ctx, row, pageSize, fn)
	})
}
