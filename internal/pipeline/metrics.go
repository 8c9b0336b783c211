package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the feed pipeline.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	FetchesTotal     *prometheus.CounterVec
	EntriesSeen      prometheus.Counter
	EntriesNew       prometheus.Counter
	EnrichmentsTotal *prometheus.CounterVec
	ReportsTotal     *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_runs_total",
			Help: "Total pipeline runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hermes_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_feed_fetches_total",
			Help: "Total feed fetches by outcome.",
		}, []string{"outcome"}),
		EntriesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hermes_entries_seen_total",
			Help: "Total feed entries seen across all runs.",
		}),
		EntriesNew: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hermes_entries_new_total",
			Help: "Total entries that passed dedup and were analyzed.",
		}),
		EnrichmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_enrichments_total",
			Help: "Total analysis calls by outcome.",
		}, []string{"outcome"}),
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_reports_total",
			Help: "Total report deliveries by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.FetchesTotal,
		m.EntriesSeen,
		m.EntriesNew,
		m.EnrichmentsTotal,
		m.ReportsTotal,
	)

	return m
}
