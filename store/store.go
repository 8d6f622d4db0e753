package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the cell does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable marks transient backend failures that may be retried.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("store: timeout")

	// ErrCorrupt is returned when a stored value fails validation.
	ErrCorrupt = errors.New("store: corrupt value")

	// ErrStopScan may be returned by a VisitFunc to end a scan early without error.
	ErrStopScan = errors.New("store: stop scan")
)

// VisitFunc receives one cell of a scan. The slices are only valid for the
// duration of the call.
type VisitFunc func(row, column, value []byte) error

// Store is a keyed, columnar store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes value to (row, column), replacing any previous value.
	Put(ctx context.Context, row, column, value []byte) error

	// Get returns the value of (row, column), or ErrNotFound.
	Get(ctx context.Context, row, column []byte) ([]byte, error)

	// Delete removes (row, column). Deleting a missing cell is not an error.
	Delete(ctx context.Context, row, column []byte) error

	// ScanColumns visits every column of row in ascending column order,
	// fetching pageSize cells per backend round trip where that applies.
	ScanColumns(ctx context.Context, row []byte, pageSize int, fn VisitFunc) error
}

// DefaultPageSize is used when a scan is given a non-positive page size.
const DefaultPageSize = 256

// PageSize returns n, or DefaultPageSize when n is not positive.
func PageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	return n
}

// Stop translates ErrStopScan into a clean end of scan.
func Stop(err error) error {
	if errors.Is(err, ErrStopScan) {
		return nil
	}
	return err
}
