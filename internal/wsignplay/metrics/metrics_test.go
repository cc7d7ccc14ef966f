package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Advance(ReasonTimer)
	m.SetState("playing", []string{"playing"})
	m.CacheLookup(LookupHit)
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Advance(ReasonWatchdog)
	m.Advance(ReasonWatchdog)
	m.Advance(ReasonTimer)
	m.SetState("offline", []string{"playing", "offline"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.advances.WithLabelValues(ReasonWatchdog)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("offline")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("playing")))
}

func TestMetrics_HandlerAndMiddleware(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1alpha1/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1alpha1/status", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `wsignplay_http_requests_total{endpoint="/api/v1alpha1/status",method="GET",status="418"} 1`))
}
