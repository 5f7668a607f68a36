package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{0, "error"},
		{200, "2xx"},
		{204, "2xx"},
		{403, "403"},
		{404, "4xx"},
		{502, "5xx"},
		{304, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusClass(tt.status), "status %d", tt.status)
	}
}

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IngestRun(true, 2*time.Second)
	m.IngestRun(false, time.Second)
	m.IngestRun(true, time.Second)
	m.GitHubRequest("rest", 403)
	m.PathResolution("found")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRuns.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.githubRequests.WithLabelValues("rest", "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pathQueries.WithLabelValues("found")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IngestRun(true, time.Second)
		m.IngestUpserts(1, 2, 3)
		m.GitHubRequest("graphql", 200)
		m.PathResolution("found")
		m.PathQuery(time.Millisecond)
		m.StatsCacheLookup(true)
	})
}
