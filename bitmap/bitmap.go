package bitmap

import (
	"context"
	"fmt"
)

// Kind tags a bitmap implementation by its backing storage.
type Kind uint8

const (
	KindDense Kind = iota + 1
	KindSegmented
	KindStoreBacked
	KindSnapshot
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindSegmented:
		return "segmented"
	case KindStoreBacked:
		return "store-backed"
	case KindSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// View is the read side of a bit vector.
type View interface {
	Kind() Kind
	// Len returns the length in bits.
	Len() uint64
	Get(bit uint64) bool
	// Asserted returns the set bit positions in ascending order.
	Asserted() []uint64
	Cardinality() uint64
	IsEmpty() bool
	// Bytes returns the Len()/8 byte image.
	Bytes() []byte
	// Range returns n bytes of the image starting at byte offset off.
	Range(off, n uint64) ([]byte, error)
}

// Bitmap is a mutable bit vector.
type Bitmap interface {
	View
	Set(bit uint64, value bool)
	SetMany(bits ...uint64)
	Clear()
	// Clone returns a deep copy sharing no storage with the receiver.
	Clone() Bitmap
	// And returns receiver AND other as a new bitmap.
	And(other View) (Bitmap, error)
	// Or returns receiver OR other as a new bitmap.
	Or(other View) (Bitmap, error)
	MutatingAnd(other View) error
	MutatingOr(other View) error
}

// Stored is a bit vector kept outside the process. It offers the operations
// of Bitmap, each taking a context and reporting store failures.
type Stored interface {
	Kind() Kind
	Len() uint64
	Get(ctx context.Context, bit uint64) (bool, error)
	Asserted(ctx context.Context) ([]uint64, error)
	Cardinality(ctx context.Context) (uint64, error)
	IsEmpty(ctx context.Context) (bool, error)
	Bytes(ctx context.Context) ([]byte, error)
	Range(ctx context.Context, off, n uint64) ([]byte, error)
	Set(ctx context.Context, bit uint64, value bool) error
	SetMany(ctx context.Context, bits ...uint64) error
	Clear(ctx context.Context) error
	// Clone returns an in-memory copy.
	Clone(ctx context.Context) (Bitmap, error)
	And(ctx context.Context, other View) (Bitmap, error)
	Or(ctx context.Context, other View) (Bitmap, error)
	MutatingAnd(ctx context.Context, other View) error
	MutatingOr(ctx context.Context, other View) error
}

// Factory creates an empty bitmap of the given length.
type Factory func(length uint64) (Bitmap, error)

// DenseFactory creates Dense bitmaps.
func DenseFactory(length uint64) (Bitmap, error) {
	return NewDense(length)
}

func checkLength(length uint64) error {
	if length%8 != 0 {
		return fmt.Errorf("%w: %d bits is not a multiple of 8", ErrInvalidLength, length)
	}
	return nil
}

func checkSameLength(a, b View) error {
	if a.Len() != b.Len() {
		return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, a.Len(), b.Len())
	}
	return nil
}

func checkRange(length, off, n uint64) error {
	if off+n < off || off+n > length/8 {
		return fmt.Errorf("%w: bytes [%d, %d) of %d", ErrOutOfRange, off, off+n, length/8)
	}
	return nil
}

// mutatingAnd clears every bit of dst that is not set in other. Only bits
// already asserted in dst are inspected.
func mutatingAnd(dst Bitmap, other View) error {
	if err := checkSameLength(dst, other); err != nil {
		return err
	}
	for _, b := range dst.Asserted() {
		if !other.Get(b) {
			dst.Set(b, false)
		}
	}
	return nil
}

func mutatingOr(dst Bitmap, other View) error {
	if err := checkSameLength(dst, other); err != nil {
		return err
	}
	dst.SetMany(other.Asserted()...)
	return nil
}
