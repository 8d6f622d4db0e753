// Package hashing maps values to bit positions in a fixed bit space.
//
// A value is fed through a Funnel into its canonical bytes, hashed with
// MurmurHash3 x64 128 under a fixed seed, and the 128-bit result, read as an
// unsigned big-endian integer, is reduced modulo the bit-space size:
//
//	h, _ := hashing.NewHasher[string](hashing.StringFunnel, 1<<24)
//	bit := h.Bit("key-42")
//
// Bit assignment is stable across processes and restarts. Changing the seed,
// a funnel, or the bit-space size invalidates every index built before.
package hashing
