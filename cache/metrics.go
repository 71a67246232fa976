package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inspector_cache"

// StatsSource is anything that can report cache statistics.
type StatsSource interface {
	Stats() Stats
}

// Collector exports cache statistics as Prometheus metrics at scrape time.
type Collector struct {
	source StatsSource

	hits          *prometheus.Desc
	misses        *prometheus.Desc
	sets          *prometheus.Desc
	deletes       *prometheus.Desc
	invalidations *prometheus.Desc
	expired       *prometheus.Desc
	staleSets     *prometheus.Desc
	size          *prometheus.Desc
	tags          *prometheus.Desc
	hitRatio      *prometheus.Desc
}

// NewCollector creates a Collector reading from source.
func NewCollector(source StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		source:        source,
		hits:          desc("hits_total", "Cache lookups that found a live entry"),
		misses:        desc("misses_total", "Cache lookups that found nothing or an expired entry"),
		sets:          desc("sets_total", "Entries stored"),
		deletes:       desc("deletes_total", "Entries removed by key"),
		invalidations: desc("invalidations_total", "Entries removed by tag or pattern"),
		expired:       desc("expired_total", "Entries removed after their TTL"),
		staleSets:     desc("stale_sets_total", "Loads not stored because an invalidation ran meanwhile"),
		size:          desc("entries", "Entries currently stored"),
		tags:          desc("tags", "Tags currently indexed"),
		hitRatio:      desc("hit_ratio", "Hits over total lookups, 0 to 1"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.deletes
	ch <- c.invalidations
	ch <- c.expired
	ch <- c.staleSets
	ch <- c.size
	ch <- c.tags
	ch <- c.hitRatio
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(c.deletes, prometheus.CounterValue, float64(s.Deletes))
	ch <- prometheus.MustNewConstMetric(c.invalidations, prometheus.CounterValue, float64(s.Invalidations))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(s.Expired))
	ch <- prometheus.MustNewConstMetric(c.staleSets, prometheus.CounterValue, float64(s.StaleSets))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.tags, prometheus.GaugeValue, float64(s.TagCount))
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.HitRate/100)
}
