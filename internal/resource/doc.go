// Package resource governs the two resources the segment cache competes for:
//
//   - Memory: cached segment images are charged against a byte budget (non-blocking, fail-fast)
//   - IO: deferred segment flushes are throttled by a token bucket so background
//     writes do not starve foreground reads
//
// A nil *Controller is valid; every method becomes a no-op.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   64 << 20,
//	    IOLimitBytesPerSec: 32 << 20,
//	})
//
//	if !rc.TryAcquireMemory(segmentBytes) {
//	    // do not cache
//	}
//	defer rc.ReleaseMemory(segmentBytes)
package resource
