package diarization

import (
	"context"
	"testing"

	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/provider"
)

func TestRegistriesCreate(t *testing.T) {
	regs := NewRegistries()
	regs.Segmentation.RegisterFactory("stub", func(cfg map[string]any) (SegmentationOracle, error) {
		return &stubSegmentation{}, nil
	})
	regs.Embedding.RegisterFactory("stub", func(cfg map[string]any) (EmbeddingModel, error) {
		return &stubModel{}, nil
	})

	seg, emb, err := regs.Create(OracleConfig{Segmentation: "stub", Embedding: "stub"}, DefaultConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if seg.Name() != "stub-segmentation" {
		t.Errorf("unexpected segmentation oracle %q", seg.Name())
	}
	wrapped, ok := emb.(*OverlapAwareEmbedding)
	if !ok || wrapped.gamma != 3 || wrapped.beta != 10 {
		t.Errorf("embedding model must be wrapped with gamma/beta, got %#v", emb)
	}

	health := regs.Health(context.Background())
	if health["segmentation/stub"].Status != provider.StatusHealthy || health["embedding/stub"].Status != provider.StatusHealthy {
		t.Errorf("unexpected health %v", health)
	}
}

func TestRegistriesCreateUnknownBackend(t *testing.T) {
	regs := NewRegistries()
	_, _, err := regs.Create(OracleConfig{Segmentation: "missing", Embedding: "missing"}, DefaultConfig())
	if !errors.IsCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}
