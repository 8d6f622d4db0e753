// Package bitset provides a fixed-length, paged word store for dense bit vectors.
//
// Architecture:
//   - Paged design: words are grouped in pages (1024 uint64 words = 65536 bits by default)
//   - Lock-free: atomic.Pointer per page, atomic.Uint64 per word
//   - Lazy allocation: a page is allocated on the first write that touches it
//
// Used internally by:
//   - bitmap.Dense (the in-memory Bit Vector)
//   - segment images decoded for AND/OR and cardinality
package bitset
