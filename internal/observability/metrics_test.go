package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.LoginFailed()
	m.LoginFailed()
	m.AccountLocked()
	m.PostsPublished("schedule", 3)
	m.PostsPublished("schedule", 0)
	m.SchedulerRun(nil)
	m.SchedulerRun(errors.New("db down"))
	m.RecordRequest("/api/news", "GET", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockouts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.postsPublished.WithLabelValues("schedule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.schedulerRuns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/news", "200")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoginFailed()
		m.RecordError("/", "GET", "X")
		m.EmailFailed("verification")
	})
}

func TestHandlerExposesPortalMetrics(t *testing.T) {
	m := NewMetrics()
	m.AccountLocked()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "portal_account_lockouts_total 1")
}
