package obs_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("pos", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues("system", http.MethodGet, "/health/ready", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight.WithLabelValues("system")))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/billing/items", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/billing/items"))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues("billing", http.MethodPost, "/api/v1/billing/items", "204")))
}

func TestScreenOf(t *testing.T) {
	require.Equal(t, "billing", obs.ScreenOf("/api/v1/billing"))
	require.Equal(t, "products", obs.ScreenOf("/api/v1/products/12"))
	require.Equal(t, "other", obs.ScreenOf("/api/v1/unknown"))
	require.Equal(t, "system", obs.ScreenOf("/health/live"))
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 50, 500}, obs.ParseBucketsCSV("500, 5,abc,-1,50,5"))
	require.Empty(t, obs.ParseBucketsCSV(""))
}

func TestHTTPMetricsReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("pos", nil, registry)
	second := obs.NewHTTPMetrics("pos", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestRequestLoggerIncludesSession(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/billing", func(w http.ResponseWriter, r *http.Request) {
		common.TagRequest(r.Context(), "sess-1", "asha")
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/billing", nil))

	out := buf.String()
	require.Contains(t, out, `"session_id":"sess-1"`)
	require.Contains(t, out, `"operator":"asha"`)
	require.Contains(t, out, `"message":"http_request"`)
}
