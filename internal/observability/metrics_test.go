package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Millisecond)
	m.ObserveStage("merge", "ok", time.Second)
	m.IncChainFailure()
	m.IncStatusEvent("done")
	m.ObserveLLM("chat", nil, time.Second)
	m.IncDecision("approve", nil)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCountersAndExposition(t *testing.T) {
	m := New()
	m.ObserveStage("graphrag", "error", 2*time.Second)
	m.ObserveStage("graphrag", "ok", time.Second)
	m.ObserveStage("graphrag", "ok", time.Second)
	m.IncStatusEvent("running")
	m.IncDecision("approve", errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageRuns.WithLabelValues("graphrag", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.approvals.WithLabelValues("approve", "error")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ferag_pipeline_stage_runs_total{stage="graphrag",status="ok"} 2`)
	assert.Contains(t, string(body), `ferag_status_events_total{status="running"} 1`)
}
