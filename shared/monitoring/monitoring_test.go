package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorLifecycle(t *testing.T) {
	m := NewMonitor()
	assert.True(t, m.IsHealthy(), "no runs yet counts as healthy")
	assert.Equal(t, "No runs yet", m.GetStatusSummary())

	m.RecordPartialFailure(errors.New("tree lookup failed"), time.Second)
	assert.True(t, m.IsHealthy(), "partial failures do not change health")
	assert.Equal(t, 1, m.PartialFailures())

	m.RecordCriticalFailure(errors.New("config broken"), time.Second)
	assert.False(t, m.IsHealthy())
	assert.Contains(t, m.GetStatusSummary(), "config broken")

	m.RecordSuccess("risk 12.3% (safe)", time.Second)
	assert.True(t, m.IsHealthy())
	assert.Contains(t, m.GetStatusSummary(), "risk 12.3% (safe)")
}

func TestHealthServerRoutes(t *testing.T) {
	m := NewMonitor()
	var latest atomic.Value
	h := NewHealthServer(m, "", func() any { return latest.Load() })
	assert.Equal(t, "8080", h.port)

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/assessment")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	latest.Store(map[string]float64{"probability_percent": 42.5})
	resp, err = http.Get(srv.URL + "/assessment")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	m.RecordCriticalFailure(errors.New("boom"), time.Millisecond)
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
