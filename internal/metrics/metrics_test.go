package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAndExpose(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/reports/income", 200, 20*time.Millisecond)
	m.ObserveReport(true, time.Second)
	m.ObserveReport(false, 0)
	m.ObserveReport(false, 0)
	m.ObserveInconsistency("ORPHANED_PARENT")
	m.ObserveIngest("commission", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/reports/income", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reportBuilds.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRecords.WithLabelValues("commission", "error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "affiliatedesk_income_inconsistencies_total")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.ObserveReport(true, time.Millisecond)
	m.ObserveInconsistency("X")
	m.ObserveIngest("affiliate", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
