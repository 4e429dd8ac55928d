package diarization

import (
	"context"
	"math"
)

// minWeight floors pooling weights so no frame is ignored entirely.
const minWeight = 1e-8

// OverlapAwareEmbedding turns an EmbeddingModel into an EmbeddingOracle.
// Frames where a speaker overlaps with others are down-weighted before
// pooling, and the resulting embeddings are rescaled to a fixed L2 norm.
type OverlapAwareEmbedding struct {
	model EmbeddingModel
	gamma float64
	beta  float64
	norm  float64
}

// NewOverlapAwareEmbedding wraps model. gamma sharpens the weights, beta is
// the softmax temperature across speakers and norm the output L2 norm.
func NewOverlapAwareEmbedding(model EmbeddingModel, gamma, beta, norm float64) *OverlapAwareEmbedding {
	return &OverlapAwareEmbedding{model: model, gamma: gamma, beta: beta, norm: norm}
}

// Name returns the wrapped model's name.
func (o *OverlapAwareEmbedding) Name() string { return o.model.Name() }

// IsAvailable reports whether the wrapped model is reachable.
func (o *OverlapAwareEmbedding) IsAvailable(ctx context.Context) bool {
	return o.model.IsAvailable(ctx)
}

// Model returns the wrapped embedding model.
func (o *OverlapAwareEmbedding) Model() EmbeddingModel { return o.model }

// Embed computes overlap-penalized weights, embeds, and normalizes.
func (o *OverlapAwareEmbedding) Embed(ctx context.Context, waveforms [][]float32, segmentations []Scores) ([]Embeddings, error) {
	weights := make([]Scores, len(segmentations))
	for i, seg := range segmentations {
		weights[i] = OverlappedSpeechPenalty(seg, o.gamma, o.beta)
	}
	embs, err := o.model.EmbedWeighted(ctx, waveforms, weights)
	if err != nil {
		return nil, err
	}
	for _, e := range embs {
		normalize(e, o.norm)
	}
	return embs, nil
}

// OverlappedSpeechPenalty returns seg^gamma * softmax(beta*seg)^gamma per
// frame, floored at 1e-8. The softmax runs across speakers.
func OverlappedSpeechPenalty(seg Scores, gamma, beta float64) Scores {
	out := make(Scores, len(seg))
	for i, frame := range seg {
		row := make([]float64, len(frame))
		peak := math.Inf(-1)
		for _, s := range frame {
			peak = math.Max(peak, beta*s)
		}
		var total float64
		for k, s := range frame {
			row[k] = math.Exp(beta*s - peak)
			total += row[k]
		}
		for k, s := range frame {
			w := math.Pow(s, gamma) * math.Pow(row[k]/total, gamma)
			if w < minWeight || math.IsNaN(w) {
				w = minWeight
			}
			row[k] = w
		}
		out[i] = row
	}
	return out
}

// normalize rescales each row to L2 norm n in place. Rows that cannot be
// rescaled become NaN so the tracker treats them as degenerate.
func normalize(e Embeddings, n float64) {
	for _, row := range e {
		var sq float64
		for _, v := range row {
			sq += v * v
		}
		norm := math.Sqrt(sq)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			for k := range row {
				row[k] = math.NaN()
			}
			continue
		}
		for k := range row {
			row[k] = n * row[k] / norm
		}
	}
}
