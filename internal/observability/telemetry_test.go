package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func TestTracerProviderRecordsSpans(t *testing.T) {
	ctx := context.Background()
	rec := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(ctx, "voxel-test", sdktrace.WithSpanProcessor(rec))
	require.NoError(t, err)
	t.Cleanup(func() { tp.Shutdown(ctx) })

	_, span := tp.Tracer("test").Start(ctx, "server.tick")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "server.tick", ended[0].Name())
	assert.Contains(t, ended[0].Resource().Attributes(), semconv.ServiceName("voxel-test"))
}

func TestTracerWithoutProviderIsNoop(t *testing.T) {
	_, span := Tracer("game").Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
}

func TestSamplerByRatio(t *testing.T) {
	assert.Contains(t, Settings{}.Sampler().Description(), "AlwaysOnSampler")
	assert.Contains(t, Settings{SampleRatio: 1}.Sampler().Description(), "AlwaysOnSampler")
	assert.Contains(t, Settings{SampleRatio: 0.25}.Sampler().Description(), "TraceIDRatioBased{0.25}")
}
