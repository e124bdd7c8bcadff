package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, origin string) (http.Handler, *HTTPMetrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	gql := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"health":"ok"}}`)
	})
	return RegisterRoutes(Deps{GraphQL: gql, Gatherer: reg, Metrics: m, CORSOrigin: origin}), m
}

func TestHealthAndHeaders(t *testing.T) {
	h, _ := newTestRouter(t, "*")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := newTestRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	h, _ := newTestRouter(t, "https://app.example.com")
	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	require.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestGraphQLMountAndMetrics(t *testing.T) {
	h, m := newTestRouter(t, "*")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ health }"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"health":"ok"}}`, rec.Body.String())
	require.Equal(t, float64(1), promtest.ToFloat64(m.requests.WithLabelValues("/graphql", http.MethodPost, "200")))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, float64(1), promtest.ToFloat64(m.requests.WithLabelValues("unmatched", http.MethodGet, "404")))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "directory_http_requests_total")
}
