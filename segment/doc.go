// Package segment implements store-backed bit vectors and the cache that keeps
// them in memory.
//
// A Segment is one fixed-length slice of a row's bit space. Its whole byte
// image lives in a single store column named by the big-endian segment index,
// so every write replaces the image in one Put and a failed write leaves the
// stored image untouched.
//
// # Write Modes
//
//   - Synchronous (default): each Set reads the image, modifies a copy and
//     writes it back before returning.
//   - Deferred (WithDeferredWrites): Set updates the in-memory image and
//     schedules a flush on a Flusher. A flush only runs if no newer change
//     arrived in the meantime, so a burst of Sets on one segment is persisted
//     by a single Put.
//
// # Cache
//
// Cache bounds the number of live segments by a memory budget. Concurrent
// misses on the same (row, segment) collapse into one load. Segments evicted
// with unflushed changes stay reachable until their flush completes, so a
// reload never observes an older image than the one already acknowledged.
package segment
