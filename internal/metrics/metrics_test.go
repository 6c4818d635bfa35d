package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAccrualRun(t *testing.T) {
	m := New()

	m.ObserveAccrualRun(AccrualOutcome{
		Status:    "completed",
		Duration:  150 * time.Millisecond,
		Advanced:  3,
		Completed: 1,
		Failed:    1,
		Settled:   35200,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.accrualRuns.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.accrualInvestments.WithLabelValues("advanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accrualInvestments.WithLabelValues("failed")))
	assert.Equal(t, 35200.0, testutil.ToFloat64(m.settledAmount))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAccrualRun(AccrualOutcome{Status: "completed"})
		m.ObserveNotification("sent")
		m.SetNotificationsPending(3)
		m.ObserveJob("backup", errors.New("x"))
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/admin/deposits/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/deposits/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.httpRequests.WithLabelValues("GET", "/api/admin/deposits/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "flexinvest_http_requests_total"))
}

func TestObserveJob(t *testing.T) {
	m := New()
	m.ObserveJob("daily_accrual", nil)
	m.ObserveJob("daily_accrual", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("daily_accrual", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("daily_accrual", "false")))
}
