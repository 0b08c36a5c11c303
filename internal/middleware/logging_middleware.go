// Package middleware gin-обработчики административного HTTP: журнал запросов и метрики.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxelworld/internal/logging"
)

const (
	// TraceKey ключ trace-ID в gin.Context
	TraceKey = "trace_id"
	// TraceHeader заголовок ответа с trace-ID
	TraceHeader = "X-Trace-Id"
)

// RequestLogger пишет по строке на запрос с trace-ID. Успешные запросы идут
// в DEBUG, ответы 5xx в WARN.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создает middleware; nil означает HTTP-логгер
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.GetHTTPLogger()
	}
	return &RequestLogger{logger: logger}
}

// traceID берет идентификатор span'а otelgin, а без трассировки выдает UUID
func traceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set(TraceKey, id)
		c.Header(TraceHeader, id)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		log := rl.logger.Debug
		if status >= 500 {
			log = rl.logger.Warn
		}
		log("[HTTP] %s %s %d %s ip=%s trace=%s", c.Request.Method, route, status, time.Since(start), c.ClientIP(), id)
	}
}
