// Package observability подключает трассировку фаз тика к OTLP коллектору.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxelworld/internal/logging"
)

const tracerPrefix = "github.com/annel0/voxelworld/"

// Settings параметры трассировки
type Settings struct {
	ServiceName string
	// Endpoint host:port коллектора; пусто берет OTEL_EXPORTER_OTLP_* или localhost:4318
	Endpoint string
	Insecure bool
	// SampleRatio доля записываемых тиков; вне (0, 1) пишутся все
	SampleRatio float64
}

// Sampler выбирает сэмплер по доле; родительское решение сохраняется
func (s Settings) Sampler() sdktrace.Sampler {
	if s.SampleRatio <= 0 || s.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))
}

// Start настраивает OTLP/HTTP экспортер и делает провайдер глобальным.
// Возвращает shutdown, который сбрасывает накопленные спаны.
func Start(ctx context.Context, s Settings) (func(context.Context) error, error) {
	var opts []otlptracehttp.Option
	if s.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(s.Endpoint))
	}
	if s.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("OTLP экспортер: %w", err)
	}

	tp, err := NewTracerProvider(ctx, s.ServiceName,
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(s.Sampler()),
	)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	logging.Info("Трассировка включена (service=%s, endpoint=%q)", s.ServiceName, s.Endpoint)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// NewTracerProvider создает провайдер с ресурсом сервиса и заданными обработчиками
func NewTracerProvider(ctx context.Context, serviceName string, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("ресурс трассировки: %w", err)
	}
	return sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(res))...), nil
}

// Tracer трассировщик пакета из глобального провайдера
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(tracerPrefix + pkg)
}
