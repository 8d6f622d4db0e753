package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hupe1980/globdex/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the frame compression algorithm.
type CompressionType uint8

const (
	// CompressionNone stores the payload as is (still framed and checksummed).
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD (better ratio; sparse segment images shrink well).
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("CompressionType(%d)", uint8(c))
	}
}

// Frame format: [type uint8][rawSize uint32][crc32c(raw) uint32][payload...]
const frameHeaderSize = 9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// CompressedStore frames and compresses every value written to the inner store.
type CompressedStore struct {
	inner Store
	ct    CompressionType
}

var _ Store = (*CompressedStore)(nil)

// Compressed wraps inner, compressing values with ct.
func Compressed(inner Store, ct CompressionType) *CompressedStore {
	return &CompressedStore{inner: inner, ct: ct}
}

func (c *CompressedStore) Put(ctx context.Context, row, column, value []byte) error {
	frame, err := encodeFrame(value, c.ct)
	if err != nil {
		return err
	}
	return c.inner.Put(ctx, row, column, frame)
}

func (c *CompressedStore) Get(ctx context.Context, row, column []byte) ([]byte, error) {
	frame, err := c.inner.Get(ctx, row, column)
	if err != nil {
		return nil, err
	}
	return decodeFrame(frame)
}

func (c *CompressedStore) Delete(ctx context.Context, row, column []byte) error {
	return c.inner.Delete(ctx, row, column)
}

func (c *CompressedStore) ScanColumns(ctx context.Context, row []byte, pageSize int, fn VisitFunc) error {
	return c.inner.ScanColumns(ctx, row, pageSize, func(r, col, frame []byte) error {
		raw, err := decodeFrame(frame)
		if err != nil {
			return fmt.Errorf("column %x: %w", col, err)
		}
		return fn(r, col, raw)
	})
}

func encodeFrame(raw []byte, ct CompressionType) ([]byte, error) {
	var payload []byte
	if len(raw) == 0 {
		ct = CompressionNone
	}

	switch ct {
	case CompressionNone:
		payload = raw
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible.
			ct, payload = CompressionNone, raw
		} else {
			payload = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("store: unknown compression %s", ct)
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	frame[0] = byte(ct)
	binary.LittleEndian.PutUint32(frame[1:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(frame[5:], hash.CRC32C(raw))
	return append(frame, payload...), nil
}

func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrCorrupt, len(frame))
	}

	ct := CompressionType(frame[0])
	size := binary.LittleEndian.Uint32(frame[1:])
	sum := binary.LittleEndian.Uint32(frame[5:])
	payload := frame[frameHeaderSize:]

	var raw []byte
	switch ct {
	case CompressionNone:
		raw = append([]byte(nil), payload...)
	case CompressionLZ4:
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		raw = raw[:n]
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		raw = out
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, ct)
	}

	if uint32(len(raw)) != size {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrCorrupt, len(raw), size)
	}
	if hash.CRC32C(raw) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return raw, nil
}
