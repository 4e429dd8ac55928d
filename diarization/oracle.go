package diarization

import (
	"context"

	"github.com/kbukum/streamdiar/provider"
)

// SegmentationOracle estimates per-frame speaker activity for a batch of chunks.
type SegmentationOracle interface {
	provider.Provider

	// SampleRate is the sample rate the model expects.
	SampleRate() int
	// Duration is the chunk length in seconds the model was trained on.
	Duration() float64
	// Segment returns one Scores matrix per waveform. All matrices in a
	// batch have the same shape.
	Segment(ctx context.Context, waveforms [][]float32) ([]Scores, error)
}

// EmbeddingOracle extracts one embedding per local speaker, given the
// segmentation of each waveform. Degenerate speakers yield a row of NaN.
type EmbeddingOracle interface {
	provider.Provider

	Embed(ctx context.Context, waveforms [][]float32, segmentations []Scores) ([]Embeddings, error)
}

// EmbeddingModel extracts raw speaker embeddings by pooling each waveform
// with per-frame, per-speaker weights.
type EmbeddingModel interface {
	provider.Provider

	EmbedWeighted(ctx context.Context, waveforms [][]float32, weights []Scores) ([]Embeddings, error)
}
