// Package bitmap defines the fixed-length bit vector contract and its in-memory
// implementations.
//
// Every variant serializes to exactly Len()/8 bytes, little-endian both within a
// byte (bit 0 is the least significant bit of byte 0) and across bytes (byte 0
// holds bits 0-7).
//
// Variants are tagged by Kind:
//
//	Dense        paged machine words (internal/bitset)
//	Segmented    lazily allocated, same-sized chunks of another Bitmap
//	StoreBacked  one store cell holding the full byte image (package segment)
//	Snapshot     read-only view over an immutable byte image
//
// Out-of-range bits read as false and writes to them are ignored.
package bitmap
