package bitmap

import "errors"

var (
	// ErrInvalidLength is returned when a bit length is not a multiple of 8,
	// or a segmented length is not divisible by its chunk length.
	ErrInvalidLength = errors.New("bitmap: invalid length")

	// ErrLengthMismatch is returned by AND/OR between bitmaps of different lengths.
	ErrLengthMismatch = errors.New("bitmap: length mismatch")

	// ErrOutOfRange is returned when a byte range exceeds the image.
	ErrOutOfRange = errors.New("bitmap: range out of bounds")
)
