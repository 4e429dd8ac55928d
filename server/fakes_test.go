package server

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/provider"
)

const (
	fakeSampleRate = 16
	fakeDuration   = 1.0
	fakeFrames     = 4
)

// fakeSegmentation reports local speaker 0 active on every frame.
type fakeSegmentation struct {
	fail atomic.Bool
}

func (f *fakeSegmentation) Name() string                        { return "fake-segmentation" }
func (f *fakeSegmentation) IsAvailable(ctx context.Context) bool { return !f.fail.Load() }
func (f *fakeSegmentation) SampleRate() int                     { return fakeSampleRate }
func (f *fakeSegmentation) Duration() float64                   { return fakeDuration }

func (f *fakeSegmentation) Segment(ctx context.Context, waveforms [][]float32) ([]diarization.Scores, error) {
	if f.fail.Load() {
		return nil, fmt.Errorf("model offline")
	}
	out := make([]diarization.Scores, len(waveforms))
	for i := range out {
		s := make(diarization.Scores, fakeFrames)
		for j := range s {
			s[j] = []float64{0.9, 0.0}
		}
		out[i] = s
	}
	return out, nil
}

// fakeEmbedding returns the same two orthogonal embeddings for every chunk.
type fakeEmbedding struct{}

func (fakeEmbedding) Name() string                        { return "fake-embedding" }
func (fakeEmbedding) IsAvailable(ctx context.Context) bool { return true }

func (fakeEmbedding) Embed(ctx context.Context, waveforms [][]float32, segs []diarization.Scores) ([]diarization.Embeddings, error) {
	out := make([]diarization.Embeddings, len(waveforms))
	for i := range out {
		out[i] = diarization.Embeddings{{1, 0}, {0, 1}}
	}
	return out, nil
}

type fixture struct {
	server   *Server
	sessions *SessionManager
	seg      *fakeSegmentation
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	cfg := Config{}
	cfg.ApplyDefaults()
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	seg := &fakeSegmentation{}
	factory := func(id string) (*diarization.Pipeline, error) {
		return diarization.New(diarization.DefaultConfig(), seg, fakeEmbedding{},
			diarization.WithSessionID(id), diarization.WithLogger(logger.Nop()))
	}
	sessions := NewSessionManager(cfg.MaxSessions, factory, nil, logger.Nop())
	health := func(ctx context.Context) map[string]provider.HealthStatus {
		return map[string]provider.HealthStatus{"segmentation/fake": provider.Check(ctx, seg)}
	}

	srv := New(cfg, logger.Nop())
	NewHandler("streamdiar-test", sessions, health, cfg, logger.Nop()).Register(srv.GinEngine())
	return &fixture{server: srv, sessions: sessions, seg: seg}
}

func samples(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
