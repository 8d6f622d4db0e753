package segment

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/globdex/bitmap"
	"github.com/hupe1980/globdex/store"
)

// ColumnSize is the byte length of a segment column name.
const ColumnSize = 8

// errDetached is returned by writes to a segment the cache has let go of.
// The cache retries such writes on a freshly loaded instance.
var errDetached = errors.New("segment: detached")

// Column returns the store column holding segment index.
func Column(index uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, ColumnSize), index)
}

// ParseColumn decodes a column written by Column.
func ParseColumn(column []byte) (uint64, error) {
	if len(column) != ColumnSize {
		return 0, fmt.Errorf("%w: segment column of %d bytes", store.ErrCorrupt, len(column))
	}
	return binary.BigEndian.Uint64(column), nil
}

// Segment is a bit vector of fixed length stored in one column of one row.
// All methods are safe for concurrent use.
type Segment struct {
	st     store.Store
	row    []byte
	index  uint64
	column []byte
	length uint64
	opts   options

	mu       sync.Mutex // guards image, loaded, detached
	image    []byte
	loaded   bool
	detached bool

	flushMu    sync.Mutex // serializes flushes
	gen        atomic.Uint64
	flushedGen atomic.Uint64

	onFlushed func(*Segment)
}

var _ bitmap.Stored = (*Segment)(nil)

// New returns the segment index of row. No store access happens until the
// first read or write.
func New(st store.Store, row []byte, index, length uint64, opts ...Option) (*Segment, error) {
	if length == 0 || length%8 != 0 {
		return nil, fmt.Errorf("%w: segment of %d bits", bitmap.ErrInvalidLength, length)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Segment{
		st:     st,
		row:    bytes.Clone(row),
		index:  index,
		column: Column(index),
		length: length,
		opts:   o,
	}, nil
}

func (s *Segment) Kind() bitmap.Kind { return bitmap.KindStoreBacked }

// Len returns the length in bits.
func (s *Segment) Len() uint64 { return s.length }

// Row returns the store row.
func (s *Segment) Row() []byte { return s.row }

// Index returns the segment index within the row.
func (s *Segment) Index() uint64 { return s.index }

// Dirty reports whether deferred changes are not yet persisted.
func (s *Segment) Dirty() bool {
	return s.gen.Load() != s.flushedGen.Load()
}

func (s *Segment) retains() bool {
	return s.opts.readCaching || s.opts.flusher != nil
}

// current returns the live image. s.mu must be held.
func (s *Segment) current(ctx context.Context) ([]byte, error) {
	if s.loaded {
		return s.image, nil
	}

	img, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if s.retains() {
		s.image = img
		s.loaded = true
	}
	return img, nil
}

// fetch reads the stored image. A missing column is an all-zero segment.
func (s *Segment) fetch(ctx context.Context) ([]byte, error) {
	img := make([]byte, s.length/8)

	v, err := s.st.Get(ctx, s.row, s.column)
	if errors.Is(err, store.ErrNotFound) {
		return img, nil
	}
	if err != nil {
		return nil, err
	}

	if len(v) > len(img) {
		return nil, fmt.Errorf("%w: segment %d holds %d bytes, want at most %d", store.ErrCorrupt, s.index, len(v), len(img))
	}
	copy(img, v)
	return img, nil
}

func (s *Segment) view(ctx context.Context, fn func(img []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.current(ctx)
	if err != nil {
		return err
	}
	fn(img)
	return nil
}

// Get returns bit. Bits beyond Len read as false.
func (s *Segment) Get(ctx context.Context, bit uint64) (bool, error) {
	if bit >= s.length {
		return false, nil
	}

	var v bool
	err := s.view(ctx, func(img []byte) {
		v = img[bit/8]&(1<<(bit%8)) != 0
	})
	return v, err
}

// Asserted returns the set bit positions in ascending order.
func (s *Segment) Asserted(ctx context.Context) ([]uint64, error) {
	var out []uint64
	err := s.view(ctx, func(img []byte) {
		out = bitmap.AssertedBits(img)
	})
	return out, err
}

func (s *Segment) Cardinality(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.view(ctx, func(img []byte) {
		for _, b := range img {
			n += uint64(bits.OnesCount8(b))
		}
	})
	return n, err
}

func (s *Segment) IsEmpty(ctx context.Context) (bool, error) {
	empty := true
	err := s.view(ctx, func(img []byte) {
		for _, b := range img {
			if b != 0 {
				empty = false
				return
			}
		}
	})
	return empty, err
}

// Bytes returns a copy of the Len()/8 byte image.
func (s *Segment) Bytes(ctx context.Context) ([]byte, error) {
	var out []byte
	err := s.view(ctx, func(img []byte) {
		out = bytes.Clone(img)
	})
	return out, err
}

// Range returns n bytes of the image starting at byte offset off.
func (s *Segment) Range(ctx context.Context, off, n uint64) ([]byte, error) {
	if off+n < off || off+n > s.length/8 {
		return nil, fmt.Errorf("%w: bytes [%d, %d) of %d", bitmap.ErrOutOfRange, off, off+n, s.length/8)
	}

	var out []byte
	err := s.view(ctx, func(img []byte) {
		out = bytes.Clone(img[off : off+n])
	})
	return out, err
}

// Clone returns an in-memory copy detached from the store.
func (s *Segment) Clone(ctx context.Context) (bitmap.Bitmap, error) {
	img, err := s.Bytes(ctx)
	if err != nil {
		return nil, err
	}
	d, err := bitmap.DenseFromBytes(img, s.length)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// And returns the segment AND other as an in-memory bitmap.
func (s *Segment) And(ctx context.Context, other bitmap.View) (bitmap.Bitmap, error) {
	d, err := s.Clone(ctx)
	if err != nil {
		return nil, err
	}
	return d.And(other)
}

// Or returns the segment OR other as an in-memory bitmap.
func (s *Segment) Or(ctx context.Context, other bitmap.View) (bitmap.Bitmap, error) {
	d, err := s.Clone(ctx)
	if err != nil {
		return nil, err
	}
	return d.Or(other)
}

// MutatingAnd clears every bit not set in other and persists the result.
func (s *Segment) MutatingAnd(ctx context.Context, other bitmap.View) error {
	if err := s.sameLength(other); err != nil {
		return err
	}
	return s.update(ctx, func(img []byte) bool {
		changed := false
		for _, b := range bitmap.AssertedBits(img) {
			if !other.Get(b) && assign(img, b, false) {
				changed = true
			}
		}
		return changed
	})
}

// MutatingOr asserts every bit set in other and persists the result.
func (s *Segment) MutatingOr(ctx context.Context, other bitmap.View) error {
	if err := s.sameLength(other); err != nil {
		return err
	}
	bits := other.Asserted()
	return s.update(ctx, func(img []byte) bool {
		changed := false
		for _, b := range bits {
			if assign(img, b, true) {
				changed = true
			}
		}
		return changed
	})
}

func (s *Segment) sameLength(other bitmap.View) error {
	if other.Len() != s.length {
		return fmt.Errorf("%w: %d != %d", bitmap.ErrLengthMismatch, s.length, other.Len())
	}
	return nil
}

// Set assigns bit. Bits beyond Len are ignored.
func (s *Segment) Set(ctx context.Context, bit uint64, value bool) error {
	if bit >= s.length {
		return nil
	}
	return s.update(ctx, func(img []byte) bool {
		return assign(img, bit, value)
	})
}

// SetMany asserts every bit in one image update.
func (s *Segment) SetMany(ctx context.Context, bits ...uint64) error {
	if len(bits) == 0 {
		return nil
	}
	return s.update(ctx, func(img []byte) bool {
		changed := false
		for _, b := range bits {
			if b < s.length && assign(img, b, true) {
				changed = true
			}
		}
		return changed
	})
}

func assign(img []byte, bit uint64, value bool) bool {
	old := img[bit/8]
	mask := byte(1) << (bit % 8)
	if value {
		img[bit/8] |= mask
	} else {
		img[bit/8] &^= mask
	}
	return img[bit/8] != old
}

// update applies fn to the image and persists the result. fn reports whether
// it changed anything; unchanged images are not written.
func (s *Segment) update(ctx context.Context, fn func(img []byte) bool) error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return errDetached
	}

	img, err := s.current(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if s.opts.flusher == nil {
		defer s.mu.Unlock()

		// Modify a copy so a failed Put leaves the cached image as stored.
		next := bytes.Clone(img)
		if !fn(next) {
			return nil
		}
		if err := s.st.Put(ctx, s.row, s.column, next); err != nil {
			return err
		}
		if s.loaded {
			s.image = next
		}
		return nil
	}

	if !fn(img) {
		s.mu.Unlock()
		return nil
	}
	g := s.gen.Add(1)
	s.mu.Unlock()

	if err := s.opts.flusher.submit(ctx, s, g); err != nil {
		if errors.Is(err, ErrFlusherClosed) {
			return s.Flush(ctx)
		}
		// The change stays pending and is written by the next flush.
		return err
	}
	return nil
}

// Flush persists pending deferred changes. It is a no-op on a clean segment.
func (s *Segment) Flush(ctx context.Context) error {
	_, err := s.flush(ctx, 0)
	return err
}

// flush writes the image if the segment is dirty. A non-zero want skips the
// write unless want is still the newest generation, leaving it to the flush
// scheduled by the newer change.
func (s *Segment) flush(ctx context.Context, want uint64) (bool, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	latest := s.gen.Load()
	if latest == s.flushedGen.Load() || (want != 0 && want != latest) {
		return false, nil
	}

	s.mu.Lock()
	img := bytes.Clone(s.image)
	g := s.gen.Load()
	s.mu.Unlock()

	if s.opts.flusher != nil {
		if err := s.opts.flusher.opts.rc.AcquireIO(ctx, len(img)); err != nil {
			return false, err
		}
	}

	if err := s.st.Put(ctx, s.row, s.column, img); err != nil {
		return false, err
	}
	s.flushedGen.Store(g)

	if s.onFlushed != nil {
		s.onFlushed(s)
	}
	return true, nil
}

// Clear deletes the stored image and any pending changes.
func (s *Segment) Clear(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return errDetached
	}

	if err := s.st.Delete(ctx, s.row, s.column); err != nil {
		return err
	}

	if s.loaded {
		clear(s.image)
	}
	s.flushedGen.Store(s.gen.Add(1))
	return nil
}
