package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute метка пути для запросов мимо маршрутов, чтобы не плодить серии
const unmatchedRoute = "unmatched"

// PrometheusMiddleware собирает HTTP-метрики административного сервера:
//   - http_request_duration_seconds{method,path,status}
//   - http_requests_inflight
//   - http_request_errors_total{method,path,status} для 4xx/5xx
//
// Сам по себе является prometheus.Collector и регистрируется одним вызовом.
type PrometheusMiddleware struct {
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	errors   *prometheus.CounterVec
	// skip пути, запросы к которым не учитываются
	skip map[string]struct{}
}

var _ prometheus.Collector = (*PrometheusMiddleware)(nil)

// NewPrometheusMiddleware создаёт middleware с пространством имен service.
// Запросы к skip (например, к самому /metrics) не учитываются.
func NewPrometheusMiddleware(service string, skip ...string) *PrometheusMiddleware {
	pm := &PrometheusMiddleware{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "path", "status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросов в обработке.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Запросов, завершившихся статусом 4xx/5xx.",
		}, []string{"method", "path", "status"}),
		skip: make(map[string]struct{}, len(skip)),
	}
	for _, p := range skip {
		pm.skip[p] = struct{}{}
	}
	return pm
}

// Describe реализует prometheus.Collector
func (pm *PrometheusMiddleware) Describe(ch chan<- *prometheus.Desc) {
	pm.duration.Describe(ch)
	pm.inflight.Describe(ch)
	pm.errors.Describe(ch)
}

// Collect реализует prometheus.Collector
func (pm *PrometheusMiddleware) Collect(ch chan<- prometheus.Metric) {
	pm.duration.Collect(ch)
	pm.inflight.Collect(ch)
	pm.errors.Collect(ch)
}

// Handler возвращает gin.HandlerFunc для router.Use()
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		if _, ok := pm.skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		pm.inflight.Inc()
		defer pm.inflight.Dec()

		c.Next()

		code := c.Writer.Status()
		status := strconv.Itoa(code)
		method := c.Request.Method
		pm.duration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if code >= 400 {
			pm.errors.WithLabelValues(method, path, status).Inc()
		}
	}
}

// MetricsHandler отдает метрики указанного реестра
func MetricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
