// Package cache provides the sharded LRU behind the segment cache.
//
// Entries are keyed by (row, segment) and charged a byte cost against the shard
// capacity and, when configured, the resource.Controller memory budget.
//
// Key features:
//   - XXH3 shard selection, per-shard mutex
//   - Eviction callback invoked outside the shard lock
//   - Hit, miss and eviction counters
package cache
