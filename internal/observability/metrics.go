package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the dashboard service.
type Metrics struct {
	// Report submission metrics.
	ReportsFinalized *prometheus.CounterVec // labels: outcome={submitted,queued,error}
	SubmitDuration   prometheus.Histogram
	DraftsOpen       prometheus.Gauge

	// Ingestion metrics.
	HazardsIngested  *prometheus.CounterVec // labels: source={seed,report,feed}
	IngestErrors     prometheus.Counter
	FeedPolls        *prometheus.CounterVec // labels: outcome={success,error}
	BroadcastDropped prometheus.Counter

	LiveSessions prometheus.Gauge
	HTTPRequests *prometheus.CounterVec // labels: method, route, status
	RateLimited  prometheus.Counter
}

const namespace = "coastwatch"

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.ReportsFinalized,
		m.SubmitDuration,
		m.DraftsOpen,
		m.HazardsIngested,
		m.IngestErrors,
		m.FeedPolls,
		m.BroadcastDropped,
		m.LiveSessions,
		m.HTTPRequests,
		m.RateLimited,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		ReportsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_finalized_total",
			Help:      help("Report drafts finalized, by outcome."),
		}, []string{"outcome"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_submit_duration_seconds",
			Help:      help("Wall time of a report submission including the simulated delay."),
			Buckets:   []float64{0.1, 0.5, 1, 1.5, 2, 3, 5},
		}),
		DraftsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drafts_open",
			Help:      help("Report drafts currently held in the registry."),
		}),
		HazardsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hazards_ingested_total",
			Help:      help("Hazard records stored, by source."),
		}, []string{"source"}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      help("Hazard records that failed to store."),
		}),
		FeedPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_polls_total",
			Help:      help("Hazard feed polls, by outcome."),
		}, []string{"outcome"}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      help("Records dropped for slow live subscribers."),
		}),
		LiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      help("Connected live map sessions."),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      help("HTTP requests by method, route and status."),
		}, []string{"method", "route", "status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      help("Requests rejected by the rate limiter."),
		}),
	}
}
