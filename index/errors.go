package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/globdex/trigram"
)

var (
	// ErrInvalidPattern is returned for patterns that cannot be compiled.
	ErrInvalidPattern = errors.New("index: invalid pattern")

	// ErrEnumerationUnsupported is returned when a pattern needs every key but
	// the lookup cannot list them.
	ErrEnumerationUnsupported = errors.New("index: key enumeration unsupported")

	// ErrIndexWrite matches every *WriteError.
	ErrIndexWrite = errors.New("index: write failed")
)

// WriteError reports a failed bit assertion. Adding the same entry again is
// safe because asserting a bit twice has no further effect.
type WriteError struct {
	Bit     uint64
	Segment uint64
	Trigram trigram.Trigram
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("index: assert bit %d in segment %d of trigram %q: %v", e.Bit, e.Segment, e.Trigram.String(), e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIndexWrite.
func (e *WriteError) Is(target error) bool { return target == ErrIndexWrite }
