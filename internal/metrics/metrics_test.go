package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestLabelsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveRequest("GET", "/project/{id}", 200, 10*time.Millisecond)
	c.ObserveRequest("GET", "/project/{id}", 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequests.WithLabelValues("GET", "/project/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequests.WithLabelValues("GET", "/project/{id}", "transport_error")))
}

func TestNewCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.ObserveTick()
	second.ObserveTick()

	assert.Equal(t, 2.0, testutil.ToFloat64(second.PlaybackTicks))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveAlert("plasma")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `tricys_alerts_triggered_total{component="plasma"} 1`))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveTick()
	c.ObserveAlert("x")
	c.ObserveRequest("GET", "/", 200, time.Millisecond)
}
