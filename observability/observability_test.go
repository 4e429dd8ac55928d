package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("diar", "0.1.0", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if string(kv.Key) == AttrServiceName && kv.Value.AsString() == "diar" {
			found = true
		}
	}
	if !found {
		t.Error("expected service.name attribute on resource")
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{2.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{0.5, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description()},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestMetricsNoop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordBatch(ctx, 2, 10*time.Millisecond)
	metrics.RecordSpeakers(ctx, 1, 1)
	metrics.RecordError(ctx, "INFERENCE_FAILED")
	metrics.SessionOpened(ctx)
	metrics.SessionClosed(ctx)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordBatch(ctx, 1, time.Second)
	m.RecordSpeakers(ctx, 1, 0)
	m.RecordError(ctx, "X")
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
}

func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, not an int64 sum", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordBatch(ctx, 3, 20*time.Millisecond)
	metrics.RecordBatch(ctx, 1, 5*time.Millisecond)
	metrics.RecordSpeakers(ctx, 2, 0)
	metrics.RecordSpeakers(ctx, 0, 1)
	metrics.RecordError(ctx, "INFERENCE_FAILED")
	metrics.SessionOpened(ctx)
	metrics.SessionOpened(ctx)
	metrics.SessionClosed(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	checks := map[string]int64{
		"diarization.chunks":           4,
		"diarization.speakers.created": 2,
		"diarization.speakers.dropped": 1,
		"diarization.errors":           1,
		"diarization.sessions.active":  1,
	}
	for name, want := range checks {
		if got := sumInt64(t, rm, name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestStartSpanAndEndSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, ok := StartSpan(context.Background(), SpanProcess)
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), SpanSegment)
	EndSpan(failed, errors.New("sidecar down"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != SpanProcess || spans[0].Status.Code == codes.Error {
		t.Errorf("unexpected first span: %s %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Status.Code != codes.Error || spans[1].Status.Description != "sidecar down" {
		t.Errorf("expected error status on second span, got %v", spans[1].Status)
	}
	if len(spans[1].Events) == 0 {
		t.Error("expected recorded error event")
	}
}
