package diarization

import (
	"context"

	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/provider"
)

// OracleConfig selects the oracle backends by registered name.
type OracleConfig struct {
	Segmentation string `mapstructure:"segmentation" validate:"required"`
	Embedding    string `mapstructure:"embedding" validate:"required"`
	// Options is passed unchanged to both backend factories.
	Options map[string]any `mapstructure:"options"`
}

// Registries holds the factories of every known oracle backend.
type Registries struct {
	Segmentation *provider.Registry[SegmentationOracle]
	Embedding    *provider.Registry[EmbeddingModel]
}

// NewRegistries returns empty registries.
func NewRegistries() Registries {
	return Registries{
		Segmentation: provider.NewRegistry[SegmentationOracle](),
		Embedding:    provider.NewRegistry[EmbeddingModel](),
	}
}

// Create instantiates the configured backends. The embedding model is
// wrapped in an OverlapAwareEmbedding using cfg's gamma and beta.
func (r Registries) Create(oc OracleConfig, cfg Config) (SegmentationOracle, EmbeddingOracle, error) {
	seg, err := r.Segmentation.Create(oc.Segmentation, oc.Options)
	if err != nil {
		return nil, nil, errors.InvalidConfig("oracles.segmentation", err.Error()).WithCause(err)
	}
	model, err := r.Embedding.Create(oc.Embedding, oc.Options)
	if err != nil {
		return nil, nil, errors.InvalidConfig("oracles.embedding", err.Error()).WithCause(err)
	}
	cfg.ApplyDefaults()
	return seg, NewOverlapAwareEmbedding(model, cfg.Gamma, cfg.Beta, 1), nil
}

// Health reports every created backend, keyed "<kind>/<name>".
func (r Registries) Health(ctx context.Context) map[string]provider.HealthStatus {
	out := make(map[string]provider.HealthStatus)
	for name, s := range r.Segmentation.CheckAll(ctx) {
		out[OracleSegmentation+"/"+name] = s
	}
	for name, s := range r.Embedding.CheckAll(ctx) {
		out[OracleEmbedding+"/"+name] = s
	}
	return out
}
