package game

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/metrics"
)

const tracerName = "github.com/annel0/voxelworld/internal/game"

type options struct {
	logger  *logging.Logger
	metrics *metrics.World
	tracer  trace.Tracer
}

// Option настраивает мир
type Option func(*options)

// WithLogger задает логгер мира
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics включает метрики мира
func WithMetrics(m *metrics.World) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer задает трассировщик фаз тика. По умолчанию берется глобальный
// провайдер otel, без настройки он ничего не записывает.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func buildOptions(defaultLogger *logging.Logger, opts []Option) options {
	o := options{
		logger: defaultLogger,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
