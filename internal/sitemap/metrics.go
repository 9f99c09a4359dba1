package sitemap

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "sitemapd"

var (
	cacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_requests_total",
		Help:      "Sitemap document cache lookups by result (hit, miss).",
	}, []string{"result"})

	cacheWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_write_failures_total",
		Help:      "Built documents that could not be written to the cache.",
	})

	buildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "builds_total",
		Help:      "Sitemap document builds by result (ok, error).",
	}, []string{"result"})

	buildDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "build_duration_seconds",
		Help:      "Time spent resolving entries and serializing the document.",
		Buckets:   prometheus.DefBuckets,
	})

	documentEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "document_entries",
		Help:      "Number of entries in the most recently built document.",
	})

	pingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "pings_total",
		Help:      "Search engine notifications by engine and result (ok, error, dropped).",
	}, []string{"engine", "result"})
)

func init() {
	prometheus.MustRegister(
		cacheRequestsTotal,
		cacheWriteFailuresTotal,
		buildsTotal,
		buildDurationSeconds,
		documentEntries,
		pingsTotal,
	)
}
