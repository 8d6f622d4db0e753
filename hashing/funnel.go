package hashing

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/globdex/codec"
	"github.com/hupe1980/globdex/trigram"
)

// Funnel appends the canonical byte form of v to dst.
type Funnel[T any] func(dst []byte, v T) []byte

// StringFunnel feeds the UTF-8 bytes of a string.
func StringFunnel(dst []byte, v string) []byte { return append(dst, v...) }

// BytesFunnel feeds a byte slice as is.
func BytesFunnel(dst []byte, v []byte) []byte { return append(dst, v...) }

// Int64Funnel feeds the 8-byte big-endian form.
func Int64Funnel(dst []byte, v int64) []byte { return binary.BigEndian.AppendUint64(dst, uint64(v)) }

// IntFunnel feeds an int as Int64Funnel does.
func IntFunnel(dst []byte, v int) []byte { return Int64Funnel(dst, int64(v)) }

// Int32Funnel feeds the 4-byte big-endian form.
func Int32Funnel(dst []byte, v int32) []byte { return binary.BigEndian.AppendUint32(dst, uint32(v)) }

// Uint64Funnel feeds the 8-byte big-endian form.
func Uint64Funnel(dst []byte, v uint64) []byte { return binary.BigEndian.AppendUint64(dst, v) }

// Uint32Funnel feeds the 4-byte big-endian form.
func Uint32Funnel(dst []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(dst, v) }

// Float64Funnel feeds the IEEE 754 bits, big-endian.
func Float64Funnel(dst []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
}

// BoolFunnel feeds one byte.
func BoolFunnel(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// TrigramFunnel feeds the canonical 12-byte trigram encoding.
func TrigramFunnel(dst []byte, v trigram.Trigram) []byte { return append(dst, v[:]...) }

// CodecFunnel feeds the codec encoding of v. The codec must be deterministic
// for T. Values the codec rejects fall back to their Go-syntax representation.
func CodecFunnel[T any](c codec.Codec) Funnel[T] {
	if c == nil {
		c = codec.Default
	}
	return func(dst []byte, v T) []byte {
		b, err := c.Marshal(v)
		if err != nil {
			return fmt.Appendf(dst, "%#v", v)
		}
		return append(dst, b...)
	}
}

// FunnelFor returns the built-in funnel for T, or a CodecFunnel when T has none.
func FunnelFor[T any](c codec.Codec) Funnel[T] {
	var zero T
	var f any
	switch any(zero).(type) {
	case string:
		f = Funnel[string](StringFunnel)
	case []byte:
		f = Funnel[[]byte](BytesFunnel)
	case int:
		f = Funnel[int](IntFunnel)
	case int64:
		f = Funnel[int64](Int64Funnel)
	case int32:
		f = Funnel[int32](Int32Funnel)
	case uint64:
		f = Funnel[uint64](Uint64Funnel)
	case uint32:
		f = Funnel[uint32](Uint32Funnel)
	case float64:
		f = Funnel[float64](Float64Funnel)
	case bool:
		f = Funnel[bool](BoolFunnel)
	case trigram.Trigram:
		f = Funnel[trigram.Trigram](TrigramFunnel)
	default:
		return CodecFunnel[T](c)
	}
	return f.(Funnel[T])
}
