package hash

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/zeebo/xxh3"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Shard hashes a (row, segment) pair with XXH3.
func Shard(row string, segment uint64) uint64 {
	var seg [8]byte
	binary.BigEndian.PutUint64(seg[:], segment)

	h := xxh3.New()
	_, _ = h.WriteString(row)
	_, _ = h.Write(seg[:])
	return h.Sum64()
}
