package globdex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/globdex/bitmap"
	"github.com/hupe1980/globdex/index"
	"github.com/hupe1980/globdex/segment"
	"github.com/hupe1980/globdex/store"
)

var (
	// ErrInvalidConfig is returned for a configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrClosed is returned by an Index after Close.
	ErrClosed = errors.New("index closed")

	// ErrInvalidPattern is returned for a glob pattern that cannot be compiled.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrEnumerationUnsupported is returned for patterns without literal text
	// when the key lookup cannot list its keys.
	ErrEnumerationUnsupported = errors.New("key enumeration unsupported")

	// ErrStoreUnavailable is returned when the backing store failed transiently.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCorrupt is returned when a stored cell cannot be decoded.
	ErrCorrupt = errors.New("corrupt data")
)

// ErrIndexWrite reports an Add whose segment write failed. Re-running the
// same Add is safe.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrIndexWrite struct {
	Bit     uint64
	Segment uint64
	cause   error
}

func (e *ErrIndexWrite) Error() string {
	return fmt.Sprintf("index write failed for bit %d in segment %d", e.Bit, e.Segment)
}

func (e *ErrIndexWrite) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, segment.ErrCacheClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, index.ErrInvalidPattern):
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	case errors.Is(err, index.ErrEnumerationUnsupported):
		return fmt.Errorf("%w: %w", ErrEnumerationUnsupported, err)
	}

	var we *index.WriteError
	if errors.As(err, &we) {
		return &ErrIndexWrite{Bit: we.Bit, Segment: we.Segment, cause: err}
	}

	switch {
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, store.ErrCorrupt), errors.Is(err, bitmap.ErrInvalidLength):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return err
}
