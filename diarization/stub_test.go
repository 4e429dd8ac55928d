package diarization

import (
	"context"
	"fmt"
)

const (
	testSampleRate = 16
	testDuration   = 1.0
)

// step is one scripted chunk: what the oracles report for it.
type step struct {
	scores Scores
	embs   Embeddings
}

// script maps a waveform to its scripted step through the value of its first sample.
type script []step

func (s script) lookup(w []float32) (step, error) {
	i := int(w[0])
	if i < 0 || i >= len(s) {
		return step{}, fmt.Errorf("no scripted step %d", i)
	}
	return s[i], nil
}

type stubSegmentation struct {
	script script
	err    error
	calls  int
	// reshape lets a test corrupt the oracle output.
	reshape func([]Scores) []Scores
}

func (s *stubSegmentation) Name() string                        { return "stub-segmentation" }
func (s *stubSegmentation) IsAvailable(ctx context.Context) bool { return s.err == nil }
func (s *stubSegmentation) SampleRate() int                     { return testSampleRate }
func (s *stubSegmentation) Duration() float64                   { return testDuration }

func (s *stubSegmentation) Segment(ctx context.Context, waveforms [][]float32) ([]Scores, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Scores, len(waveforms))
	for i, w := range waveforms {
		st, err := s.script.lookup(w)
		if err != nil {
			return nil, err
		}
		out[i] = copyMatrix(st.scores)
	}
	if s.reshape != nil {
		out = s.reshape(out)
	}
	return out, nil
}

type stubEmbedding struct {
	script script
	err    error
	calls  int
}

func (s *stubEmbedding) Name() string                        { return "stub-embedding" }
func (s *stubEmbedding) IsAvailable(ctx context.Context) bool { return s.err == nil }

func (s *stubEmbedding) Embed(ctx context.Context, waveforms [][]float32, segs []Scores) ([]Embeddings, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Embeddings, len(waveforms))
	for i, w := range waveforms {
		st, err := s.script.lookup(w)
		if err != nil {
			return nil, err
		}
		out[i] = copyMatrix(st.embs)
	}
	return out, nil
}

func copyMatrix[M ~[][]float64](m M) M {
	out := make(M, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// activity returns frames rows where local speaker l has level levels[l].
func activity(frames int, levels ...float64) Scores {
	s := make(Scores, frames)
	for i := range s {
		s[i] = append([]float64(nil), levels...)
	}
	return s
}

// chunk builds the k-th chunk of a stream hopping by 0.5s; its first sample selects script step idx.
func chunk(k, idx int) Chunk {
	samples := make([]float32, testSampleRate*int(testDuration))
	samples[0] = float32(idx)
	for i := 1; i < len(samples); i++ {
		samples[i] = float32(k*100 + i)
	}
	return Chunk{Start: float64(k) * 0.5, SampleRate: testSampleRate, Samples: samples}
}
