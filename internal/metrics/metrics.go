// Package metrics holds the Prometheus collectors for ingestion, GitHub
// traffic and path queries. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tnum"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	ingestRuns       *prometheus.CounterVec
	ingestDuration   prometheus.Histogram
	ingestWrites     *prometheus.CounterVec
	githubRequests   *prometheus.CounterVec
	pathQueries      *prometheus.CounterVec
	pathQueryLatency prometheus.Histogram
	statsCache       *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: outcome (success, failure)
		ingestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingestion runs by outcome",
		}, []string{"outcome"}),
		ingestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall time of one ingestion run",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 180, 300, 600},
		}),
		// Labels: kind (developer, repository, contribution)
		ingestWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "upserts_total",
			Help:      "Graph upserts issued by ingestion runs",
		}, []string{"kind"}),
		// Labels: transport (rest, graphql), status (2xx, 403, 4xx, 5xx, error)
		githubRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "requests_total",
			Help:      "GitHub API requests by transport and status class",
		}, []string{"transport", "status"}),
		// Labels: outcome (found, ingested, not_found, timeout, error, reference)
		pathQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "path",
			Name:      "resolutions_total",
			Help:      "Path resolutions by outcome",
		}, []string{"outcome"}),
		pathQueryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "path",
			Name:      "shortest_path_seconds",
			Help:      "Latency of a single shortest path query",
			Buckets:   prometheus.DefBuckets,
		}),
		// Labels: result (hit, miss)
		statsCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "cache_lookups_total",
			Help:      "Graph stats cache lookups",
		}, []string{"result"}),
	}
}

func (m *Metrics) IngestRun(success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.ingestRuns.WithLabelValues(outcome).Inc()
	m.ingestDuration.Observe(d.Seconds())
}

func (m *Metrics) IngestUpserts(developers, repositories, contributions int) {
	if m == nil {
		return
	}
	m.ingestWrites.WithLabelValues("developer").Add(float64(developers))
	m.ingestWrites.WithLabelValues("repository").Add(float64(repositories))
	m.ingestWrites.WithLabelValues("contribution").Add(float64(contributions))
}

// GitHubRequest records one API call. status is the HTTP status code, or 0
// when no response was received.
func (m *Metrics) GitHubRequest(transport string, status int) {
	if m == nil {
		return
	}
	m.githubRequests.WithLabelValues(transport, StatusClass(status)).Inc()
}

func (m *Metrics) PathResolution(outcome string) {
	if m == nil {
		return
	}
	m.pathQueries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PathQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.pathQueryLatency.Observe(d.Seconds())
}

func (m *Metrics) StatsCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.statsCache.WithLabelValues(result).Inc()
}

// StatusClass buckets an HTTP status. 403 is kept apart because it drives the
// contributor fallback.
func StatusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status == 403:
		return "403"
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
