// Package hash provides the fast, non-cryptographic hashes used by the storage
// and caching layers.
//
// CRC32C (Castagnoli) protects compressed segment frames:
//
//	checksum := hash.CRC32C(frame)
//
// XXH3 spreads segment-cache keys across shards:
//
//	shard := hash.Shard(row, segment) % numShards
//
// Neither is used for bit assignment; that lives in the hashing package and must
// stay stable across releases.
package hash
