// Package promcollector exports the counters of a globdex.Index to Prometheus.
package promcollector

import (
	"github.com/hupe1980/globdex"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsFunc returns the current index statistics, typically Index.Stats.
type StatsFunc func() globdex.Stats

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(s globdex.Stats) float64
}

// Collector is a prometheus.Collector reading a fresh Stats snapshot on
// every scrape.
type Collector struct {
	stats   StatsFunc
	metrics []metric
}

var _ prometheus.Collector = (*Collector)(nil)

// New creates a collector. constLabels distinguish several indexes in one
// registry; they may be nil.
func New(namespace string, stats StatsFunc, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	counter := func(name, help string, fn func(s globdex.Stats) int64) metric {
		return metric{
			desc:  desc(name, help),
			kind:  prometheus.CounterValue,
			value: func(s globdex.Stats) float64 { return float64(fn(s)) },
		}
	}
	gauge := func(name, help string, fn func(s globdex.Stats) int64) metric {
		return metric{
			desc:  desc(name, help),
			kind:  prometheus.GaugeValue,
			value: func(s globdex.Stats) float64 { return float64(fn(s)) },
		}
	}

	return &Collector{
		stats: stats,
		metrics: []metric{
			counter("segment_cache_hits_total", "Segment cache hits.",
				func(s globdex.Stats) int64 { return s.Cache.Hits }),
			counter("segment_cache_misses_total", "Segment cache misses.",
				func(s globdex.Stats) int64 { return s.Cache.Misses }),
			counter("segment_cache_evictions_total", "Segments evicted from the cache.",
				func(s globdex.Stats) int64 { return s.Cache.Evictions }),
			counter("segment_cache_rejected_total", "Segments the memory budget refused to admit.",
				func(s globdex.Stats) int64 { return s.Cache.Rejected }),
			counter("segment_loads_total", "Segment instances created on a cache miss.",
				func(s globdex.Stats) int64 { return s.Cache.Loads }),
			gauge("segment_cache_segments", "Segments held by the cache.",
				func(s globdex.Stats) int64 { return int64(s.Cache.Segments) }),
			gauge("segment_cache_bytes", "Bytes of segment images held by the cache.",
				func(s globdex.Stats) int64 { return s.Cache.Bytes }),
			gauge("segment_retired", "Evicted segments waiting for their flush.",
				func(s globdex.Stats) int64 { return int64(s.Cache.Retired) }),
			counter("segment_flushes_total", "Segment images written by the flusher.",
				func(s globdex.Stats) int64 { return s.Cache.Flushes }),
			counter("segment_flushes_skipped_total", "Scheduled flushes superseded by a newer change.",
				func(s globdex.Stats) int64 { return s.Cache.SkippedWrites }),
			counter("segment_flush_failures_total", "Segment flushes that failed.",
				func(s globdex.Stats) int64 { return s.Cache.Failures }),
			gauge("segment_flushes_pending", "Queued or running segment flushes.",
				func(s globdex.Stats) int64 { return s.Cache.Pending }),
			gauge("memory_used_bytes", "Bytes reserved against the memory budget.",
				func(s globdex.Stats) int64 { return s.Resource.MemoryUsed }),
			counter("memory_denied_total", "Reservations refused by the memory budget.",
				func(s globdex.Stats) int64 { return s.Resource.MemoryDenied }),
			counter("flush_io_bytes_total", "Bytes written by background flushes.",
				func(s globdex.Stats) int64 { return s.Resource.IOBytes }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s))
	}
}
