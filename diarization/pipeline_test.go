package diarization

import (
	"context"
	stderrors "errors"
	"math"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/observability"
)

// twoSpeakers alternates which local slot holds speaker A ([1,0]) and B ([0,1]).
var twoSpeakers = script{
	{scores: activity(4, 0.9, 0.8), embs: Embeddings{{1, 0}, {0, 1}}},
	{scores: activity(4, 0.8, 0.9), embs: Embeddings{{0, 1}, {1, 0}}},
	{scores: activity(4, 0.9, 0.1), embs: Embeddings{{1, 0}, {0, 1}}},
	{scores: activity(4, 0.1, 0.9), embs: Embeddings{{0, 1}, {1, 0}}},
}

func newPipeline(t *testing.T, s script, mutate func(*Config), opts ...Option) (*Pipeline, *stubSegmentation, *stubEmbedding) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	seg := &stubSegmentation{script: s}
	emb := &stubEmbedding{script: s}
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	p, err := New(cfg, seg, emb, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, seg, emb
}

func stream(n int, steps int) []Chunk {
	chunks := make([]Chunk, n)
	for k := range chunks {
		chunks[k] = chunk(k, k%steps)
	}
	return chunks
}

func TestNewResolvesLatency(t *testing.T) {
	tests := []struct {
		latency string
		want    float64
	}{
		{"min", 0.5},
		{"", 0.5},
		{"max", 1.0},
		{"0.75", 0.75},
		{" MAX ", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.latency, func(t *testing.T) {
			p, _, _ := newPipeline(t, twoSpeakers, func(c *Config) { c.Latency = tt.latency })
			if got := p.Config().Latency; math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("latency = %v, want %v", got, tt.want)
			}
			if p.Config().Duration != testDuration || p.Config().SampleRate != testSampleRate {
				t.Errorf("unexpected resolved settings %+v", p.Config())
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"latency above duration", func(c *Config) { c.Latency = "2" }},
		{"latency below step", func(c *Config) { c.Latency = "0.25" }},
		{"latency not a number", func(c *Config) { c.Latency = "soon" }},
		{"step above duration", func(c *Config) { c.Step = 2 }},
		{"zero step", func(c *Config) { c.Step = 0 }},
		{"tau out of range", func(c *Config) { c.TauActive = 2 }},
		{"no speakers", func(c *Config) { c.MaxSpeakers = 0 }},
		{"bad metric", func(c *Config) { c.Metric = "dot" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, &stubSegmentation{}, &stubEmbedding{})
			if !errors.IsCode(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
		})
	}

	if _, err := New(DefaultConfig(), nil, &stubEmbedding{}); !errors.IsCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG for missing oracle, got %v", err)
	}
}

func TestMinimumLatencyUsesSingleWindow(t *testing.T) {
	seg := &stubSegmentation{}
	cfg := DefaultConfig()
	cfg.Duration = 5
	p, err := New(cfg, seg, &stubEmbedding{}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.NumOverlappingWindows() != 1 {
		t.Errorf("expected 1 overlapping window, got %d", p.NumOverlappingWindows())
	}
}

func TestProcessPreconditions(t *testing.T) {
	p, seg, emb := newPipeline(t, twoSpeakers, nil)
	if _, err := p.Process(context.Background(), stream(1, 4)); err != nil {
		t.Fatalf("warm-up batch: %v", err)
	}
	speakers, processed, buffered := p.Speakers(), p.Processed(), p.BufferLen()
	segCalls, embCalls := seg.calls, emb.calls

	short := chunk(1, 1)
	short.Samples = short.Samples[:10]
	otherRate := chunk(1, 1)
	otherRate.SampleRate = 8
	badStart := chunk(1, 1)
	badStart.Start = math.NaN()

	tests := []struct {
		name  string
		batch []Chunk
	}{
		{"empty batch", nil},
		{"wrong sample count", []Chunk{chunk(1, 1), short}},
		{"wrong sample rate", []Chunk{otherRate}},
		{"non-finite start", []Chunk{badStart}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Process(context.Background(), tt.batch)
			if !errors.IsCode(err, errors.ErrCodePrecondition) {
				t.Fatalf("expected PRECONDITION_FAILED, got %v", err)
			}
		})
	}

	if seg.calls != segCalls || emb.calls != embCalls {
		t.Error("oracles must not be called when preconditions fail")
	}
	if !reflect.DeepEqual(p.Speakers(), speakers) || p.Processed() != processed || p.BufferLen() != buffered {
		t.Error("failed precondition mutated session state")
	}
}

func TestProcessOracleFailureLeavesStateUntouched(t *testing.T) {
	sentinel := stderrors.New("sidecar unreachable")

	tests := []struct {
		name   string
		breaks func(seg *stubSegmentation, emb *stubEmbedding)
		oracle string
		cause  error
	}{
		{"segmentation error", func(s *stubSegmentation, _ *stubEmbedding) { s.err = sentinel }, OracleSegmentation, sentinel},
		{"embedding error", func(_ *stubSegmentation, e *stubEmbedding) { e.err = sentinel }, OracleEmbedding, sentinel},
		{"segmentation batch mismatch", func(s *stubSegmentation, _ *stubEmbedding) {
			s.reshape = func(in []Scores) []Scores { return in[:1] }
		}, OracleSegmentation, nil},
		{"ragged segmentation", func(s *stubSegmentation, _ *stubEmbedding) {
			s.reshape = func(in []Scores) []Scores { in[1] = in[1][:2]; return in }
		}, OracleSegmentation, nil},
		{"non-finite scores", func(s *stubSegmentation, _ *stubEmbedding) {
			s.reshape = func(in []Scores) []Scores { in[0][0][0] = math.NaN(); return in }
		}, OracleSegmentation, nil},
		{"embedding rows mismatch", func(s *stubSegmentation, e *stubEmbedding) {
			e.script = script{{embs: Embeddings{{1, 0}}}, {embs: Embeddings{{1, 0}}}}
		}, OracleEmbedding, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, seg, emb := newPipeline(t, twoSpeakers, nil)
			if _, err := p.Process(context.Background(), stream(2, 4)); err != nil {
				t.Fatalf("warm-up batch: %v", err)
			}
			speakers, processed, buffered := p.Speakers(), p.Processed(), p.BufferLen()

			tt.breaks(seg, emb)
			_, err := p.Process(context.Background(), []Chunk{chunk(2, 0), chunk(3, 1)})
			if !errors.IsCode(err, errors.ErrCodeInference) {
				t.Fatalf("expected INFERENCE_FAILED, got %v", err)
			}
			appErr, _ := errors.AsAppError(err)
			if appErr.Details["oracle"] != tt.oracle {
				t.Errorf("expected oracle %q, got %v", tt.oracle, appErr.Details["oracle"])
			}
			if tt.cause != nil && !stderrors.Is(err, tt.cause) {
				t.Errorf("oracle error must be reachable with errors.Is, got %v", err)
			}
			if !reflect.DeepEqual(p.Speakers(), speakers) || p.Processed() != processed || p.BufferLen() != buffered {
				t.Error("failed batch mutated session state")
			}
		})
	}
}

func TestProcessOneResultPerChunk(t *testing.T) {
	p, seg, emb := newPipeline(t, twoSpeakers, nil)
	results, err := p.Process(context.Background(), stream(3, 4))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if seg.calls != 1 || emb.calls != 1 {
		t.Errorf("expected one oracle call per batch, got %d/%d", seg.calls, emb.calls)
	}

	// First output covers the whole first chunk, later ones one step each.
	if got := results[0].Waveform.Frames; got != testSampleRate {
		t.Errorf("first waveform has %d samples, want %d", got, testSampleRate)
	}
	for i, r := range results[1:] {
		if got := r.Waveform.Frames; got != testSampleRate/2 {
			t.Errorf("result %d waveform has %d samples, want %d", i+1, got, testSampleRate/2)
		}
	}
}

func TestIdentityStability(t *testing.T) {
	for _, latency := range []string{"min", "0.75", "max"} {
		t.Run(latency, func(t *testing.T) {
			p, _, _ := newPipeline(t, twoSpeakers, func(c *Config) { c.Latency = latency })
			results, err := p.Process(context.Background(), stream(8, 4))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if n := len(p.Speakers()); n != 2 {
				t.Fatalf("expected 2 identities, got %d", n)
			}
			// Speaker A ([1,0]) is created first and must always be identity 0.
			sp := p.Speakers()
			if sp[0].Centroid[0] != 1 || sp[1].Centroid[1] != 1 {
				t.Errorf("identities drifted: %+v", sp)
			}
			for k, r := range results {
				for _, iv := range r.Annotation.Intervals {
					if iv.Speaker != 0 && iv.Speaker != 1 {
						t.Errorf("chunk %d: unexpected speaker %d", k, iv.Speaker)
					}
				}
			}
			// chunk 2 (script step 2) only has A active, chunk 3 only B.
			if latency == "min" {
				assertOnlySpeaker(t, results[2], 0)
				assertOnlySpeaker(t, results[3], 1)
			}
		})
	}
}

func assertOnlySpeaker(t *testing.T, r Result, speaker int) {
	t.Helper()
	if len(r.Annotation.Intervals) == 0 {
		t.Fatalf("expected speech from speaker %d", speaker)
	}
	for _, iv := range r.Annotation.Intervals {
		if iv.Speaker != speaker {
			t.Errorf("expected only speaker %d, got %d", speaker, iv.Speaker)
		}
	}
}

func TestSilentStream(t *testing.T) {
	silent := script{{scores: activity(4, 0.2, 0.1), embs: Embeddings{{1, 0}, {0, 1}}}}
	p, _, _ := newPipeline(t, silent, nil)
	results, err := p.Process(context.Background(), stream(4, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(p.Speakers()) != 0 {
		t.Errorf("silent stream created %d identities", len(p.Speakers()))
	}
	for k, r := range results {
		if r.Annotation.Len() != 0 {
			t.Errorf("chunk %d: expected no intervals, got %v", k, r.Annotation.Intervals)
		}
	}
}

func TestSpeakerCapDropsNewSpeaker(t *testing.T) {
	s := script{
		{scores: activity(4, 0.9), embs: Embeddings{{1, 0}}},
		{scores: activity(4, 0.9), embs: Embeddings{{0, 1}}},
	}
	p, _, _ := newPipeline(t, s, func(c *Config) { c.MaxSpeakers = 1 })
	results, err := p.Process(context.Background(), stream(2, 2))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(p.Speakers()) != 1 {
		t.Fatalf("expected identity count 1, got %d", len(p.Speakers()))
	}
	if results[1].Annotation.Len() != 0 {
		t.Errorf("dropped speaker must not appear, got %v", results[1].Annotation.Intervals)
	}
}

func TestResetReplaysIdentically(t *testing.T) {
	p, _, _ := newPipeline(t, twoSpeakers, func(c *Config) { c.Latency = "max" })
	input := stream(7, 4)

	first, err := p.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	p.Reset()
	if p.Processed() != 0 || p.BufferLen() != 0 || len(p.Speakers()) != 0 {
		t.Fatal("reset must clear the session")
	}

	var second []Result
	for _, c := range input {
		r, err := p.Process(context.Background(), []Chunk{c})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		second = append(second, r...)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("replay after reset produced different output")
	}
}

func TestBufferNeverExceedsOverlap(t *testing.T) {
	for _, latency := range []string{"min", "0.75", "max"} {
		p, _, _ := newPipeline(t, twoSpeakers, func(c *Config) { c.Latency = latency })
		for k := 0; k < 10; k++ {
			if _, err := p.Process(context.Background(), []Chunk{chunk(k, k%4)}); err != nil {
				t.Fatalf("Process: %v", err)
			}
			if p.BufferLen() > p.NumOverlappingWindows() {
				t.Fatalf("latency %s: buffer holds %d > %d", latency, p.BufferLen(), p.NumOverlappingWindows())
			}
		}
	}
}

func TestWithSessionID(t *testing.T) {
	p, _, _ := newPipeline(t, twoSpeakers, nil, WithSessionID("meeting-42"))
	if p.SessionID() != "meeting-42" {
		t.Errorf("expected session ID override, got %q", p.SessionID())
	}
	q, _, _ := newPipeline(t, twoSpeakers, nil)
	if q.SessionID() == "" || q.SessionID() == p.SessionID() {
		t.Errorf("expected generated session ID, got %q", q.SessionID())
	}
}

func TestProcessRecordsMetricsAndSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	p, seg, _ := newPipeline(t, twoSpeakers, nil, WithMetrics(metrics))
	if _, err := p.Process(context.Background(), stream(3, 4)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	seg.err = stderrors.New("boom")
	_, _ = p.Process(context.Background(), []Chunk{chunk(3, 3)})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := map[string]int64{
		"diarization.chunks":           3,
		"diarization.speakers.created": 2,
		"diarization.errors":           1,
	}
	for name, v := range want {
		if got := sumCounter(rm, name); got != v {
			t.Errorf("%s = %d, want %d", name, got, v)
		}
	}

	names := map[string]int{}
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	if names[observability.SpanProcess] != 2 || names[observability.SpanSegment] != 2 || names[observability.SpanEmbed] != 1 {
		t.Errorf("unexpected spans %v", names)
	}
}

func sumCounter(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
