package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMiddleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/items/{id}", http.MethodGet, "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/42", nil))

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/items/{id}", http.MethodGet, "418"))
	assert.Equal(t, before+1, after)
}

func TestObserveCandidate(t *testing.T) {
	before := testutil.ToFloat64(CandidatesEvaluatedTotal.WithLabelValues("model"))
	ObserveCandidate("model", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(CandidatesEvaluatedTotal.WithLabelValues("model")))
}

func TestRunLifecycle(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("completed"))
	StartRun()
	assert.Equal(t, float64(1), testutil.ToFloat64(RunsInProgress))
	FinishRun("completed", time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(RunsInProgress))
	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("completed")))
}
