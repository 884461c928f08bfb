package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	Fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owner_console_fallbacks_total",
			Help: "Total number of read paths that degraded to fallback data, by service and section",
		},
		[]string{"service", "section"},
	)
	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owner_console_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter, by limit type",
		},
		[]string{"limit_type"},
	)
	DashboardRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "owner_console_dashboard_refresh_seconds",
			Help:    "Duration of owner dashboard aggregation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owner_console_job_runs_total",
			Help: "Total number of scheduled job runs, by job and result",
		},
		[]string{"job", "result"},
	)
	HealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "owner_console_health_status",
			Help: "Result of the last health check, 1 for healthy and 0 for unhealthy",
		},
		[]string{"check"},
	)
)

func InitMetrics() {
	collectors := map[string]prometheus.Collector{
		"Fallbacks":                Fallbacks,
		"RateLimitRejections":      RateLimitRejections,
		"DashboardRefreshDuration": DashboardRefreshDuration,
		"JobRuns":                  JobRuns,
		"HealthStatus":             HealthStatus,
	}
	for name, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
}

// RecordFallback counts a read path that served degraded data.
func RecordFallback(service, section string) {
	Fallbacks.WithLabelValues(service, section).Inc()
}
