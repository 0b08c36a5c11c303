package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPrometheusCountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	mw := NewPrometheusMiddleware("test", "/metrics")
	require.NoError(t, reg.Register(mw))

	r := gin.New()
	r.Use(mw.Handler())
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", MetricsHandler(reg))

	for _, path := range []string{"/ok", "/boom", "/missing", "/metrics"} {
		serve(r, path)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(mw.errors.WithLabelValues("GET", "/boom", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mw.errors.WithLabelValues("GET", unmatchedRoute, "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(mw.inflight))
	assert.Equal(t, 3, testutil.CollectAndCount(mw.duration), "запросы к /metrics не учитываются")

	body := serve(r, "/metrics").Body.String()
	assert.Contains(t, body, `test_http_request_errors_total{method="GET",path="/boom",status="500"} 1`)
}

func TestRequestLoggerSetsTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger(nil).Handler())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString(TraceKey)
		c.Status(http.StatusNoContent)
	})

	rec := serve(r, "/")
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(TraceHeader))
}
