package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	UseTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() {
		_, _ = Init(context.Background(), Config{Enabled: false})
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "picseq", cfg.Name)
	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, DefaultServiceName, Service{}.name())
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())

	newCtx, span := StartSpan(ctx, "noop")
	require.NotNil(t, newCtx)
	span.End()
	assert.Empty(t, TraceID(newCtx))
	assert.Empty(t, SpanID(newCtx))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestRecordedSpans(t *testing.T) {
	t.Run("NavigationSpanCarriesAttributes", func(t *testing.T) {
		sr := recordSpans(t)

		ctx, span := StartNavigationSpan(context.Background(), SpanDisplay, "s1", "/pics/a.jpg", Window(10))
		assert.NotEmpty(t, TraceID(ctx))
		assert.NotEmpty(t, SpanID(ctx))
		AddEvent(ctx, "cache.hit", CacheHit(true))
		span.End()

		ended := sr.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, SpanDisplay, ended[0].Name())
		attrs := attrMap(ended[0].Attributes())
		assert.Equal(t, "s1", attrs[AttrSessionID].AsString())
		assert.Equal(t, "/pics/a.jpg", attrs[AttrPath].AsString())
		assert.Equal(t, int64(10), attrs[AttrWindow].AsInt64())
		require.Len(t, ended[0].Events(), 1)
		assert.Equal(t, "cache.hit", ended[0].Events()[0].Name)
	})

	t.Run("RecordErrorMarksSpan", func(t *testing.T) {
		sr := recordSpans(t)

		ctx, span := StartDecodeSpan(context.Background(), "/pics/broken.png")
		RecordError(ctx, errors.New("unexpected EOF"))
		RecordError(ctx, nil)
		span.End()

		ended := sr.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, codes.Error, ended[0].Status().Code)
		assert.Equal(t, "unexpected EOF", ended[0].Status().Description)
	})

	t.Run("APISpanName", func(t *testing.T) {
		sr := recordSpans(t)

		_, span := StartAPISpan(context.Background(), "next")
		span.End()

		require.Len(t, sr.Ended(), 1)
		assert.Equal(t, "api.next", sr.Ended()[0].Name())
	})
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes([]string{"cpu", "inuse_space", "goroutines"})
	require.NoError(t, err)
	assert.Len(t, types, 3)

	_, err = ParseProfileTypes([]string{"cpu", "heap"})
	assert.Error(t, err)
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
}
