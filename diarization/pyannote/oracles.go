package pyannote

import (
	"context"

	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/provider"
)

// Segmentation implements diarization.SegmentationOracle.
type Segmentation struct {
	*Client
}

// NewSegmentation creates a segmentation oracle.
func NewSegmentation(cfg Config) *Segmentation {
	return &Segmentation{Client: NewClient(cfg)}
}

// SampleRate returns the sample rate the served model expects.
func (s *Segmentation) SampleRate() int { return s.cfg.SampleRate }

// Duration returns the chunk length the served model expects.
func (s *Segmentation) Duration() float64 { return s.cfg.Duration }

// Segment returns frame-level speaker activity for each waveform.
func (s *Segmentation) Segment(ctx context.Context, waveforms [][]float32) ([]diarization.Scores, error) {
	var resp segmentResponse
	req := segmentRequest{SampleRate: s.cfg.SampleRate, Waveforms: waveforms}
	if err := s.post(ctx, "/segment", req, &resp); err != nil {
		return nil, err
	}
	out := make([]diarization.Scores, len(resp.Segmentations))
	for i, m := range resp.Segmentations {
		out[i] = m
	}
	return out, nil
}

// Embedding implements diarization.EmbeddingModel.
type Embedding struct {
	*Client
}

// NewEmbedding creates a raw embedding model.
func NewEmbedding(cfg Config) *Embedding {
	return &Embedding{Client: NewClient(cfg)}
}

// EmbedWeighted returns one embedding per local speaker, pooled with weights.
func (e *Embedding) EmbedWeighted(ctx context.Context, waveforms [][]float32, weights []diarization.Scores) ([]diarization.Embeddings, error) {
	req := embedRequest{
		SampleRate: e.cfg.SampleRate,
		Waveforms:  waveforms,
		Weights:    make([][][]float64, len(weights)),
	}
	for i, w := range weights {
		req.Weights[i] = w
	}

	var resp embedResponse
	if err := e.post(ctx, "/embed", req, &resp); err != nil {
		return nil, err
	}
	out := make([]diarization.Embeddings, len(resp.Embeddings))
	for i, m := range resp.Embeddings {
		out[i] = m
	}
	return out, nil
}

// SegmentationFactory returns a provider.Factory creating segmentation oracles.
func SegmentationFactory() provider.Factory[diarization.SegmentationOracle] {
	return func(cfg map[string]any) (diarization.SegmentationOracle, error) {
		pc, err := ParseConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewSegmentation(pc), nil
	}
}

// EmbeddingFactory returns a provider.Factory creating embedding models.
func EmbeddingFactory() provider.Factory[diarization.EmbeddingModel] {
	return func(cfg map[string]any) (diarization.EmbeddingModel, error) {
		pc, err := ParseConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewEmbedding(pc), nil
	}
}

// Register adds the pyannote factories to regs under ProviderName.
func Register(regs diarization.Registries) {
	regs.Segmentation.RegisterFactory(ProviderName, SegmentationFactory())
	regs.Embedding.RegisterFactory(ProviderName, EmbeddingFactory())
}
