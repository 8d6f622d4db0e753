package cache

import (
	"encoding/hex"
	"strconv"
)

// Key identifies one segment of one store row.
type Key struct {
	Row     string
	Segment uint64
}

// String returns a printable form, also used as the single-flight key.
func (k Key) String() string {
	return hex.EncodeToString([]byte(k.Row)) + "/" + strconv.FormatUint(k.Segment, 10)
}

// EvictFunc is called with every entry dropped to make room.
type EvictFunc[V any] func(key Key, value V)

// Stats holds cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Rejected  int64
	Len       int
	Size      int64
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Evictions += o.Evictions
	s.Rejected += o.Rejected
	s.Len += o.Len
	s.Size += o.Size
}
