package cache

// Health states derived from the hit rate.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// Hit-rate thresholds, in percent.
const (
	healthyHitRate = 50.0
	warningHitRate = 20.0
)

// Health summarizes cache effectiveness for the monitoring surface.
type Health struct {
	Status        string  `json:"status"`
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
	CacheSize     int64   `json:"cache_size"`
}

// HealthStatus classifies stats by hit rate: >=50% healthy, >=20% warning, else critical.
// With no requests the hit rate is 0, which is critical.
func HealthStatus(stats Stats) Health {
	h := Health{
		Status:        HealthHealthy,
		HitRate:       stats.HitRate,
		TotalRequests: stats.TotalRequests,
		CacheSize:     stats.Size,
	}
	switch {
	case stats.HitRate < warningHitRate:
		h.Status = HealthCritical
	case stats.HitRate < healthyHitRate:
		h.Status = HealthWarning
	}
	return h
}
