package provider

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// testProvider implements the Provider interface for testing.
type testProvider struct {
	name      string
	available bool
}

func (p *testProvider) Name() string                        { return p.name }
func (p *testProvider) IsAvailable(ctx context.Context) bool { return p.available }

type detailedProvider struct {
	testProvider
}

func (p *detailedProvider) Health(ctx context.Context) HealthStatus {
	return HealthStatus{Status: StatusDegraded, Message: "gpu busy"}
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("sidecar", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{name: cfg["name"].(string), available: true}, nil
	})

	p, err := reg.Create("sidecar", map[string]any{"name": "pyannote"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name() != "pyannote" {
		t.Errorf("expected name 'pyannote', got %q", p.Name())
	}

	cached, ok := reg.Get("sidecar")
	if !ok || cached != p {
		t.Error("expected created instance to be cached")
	}
}

func TestRegistryCreateUnregistered(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("known", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{}, nil
	})
	_, err := reg.Create("missing", nil)
	if err == nil {
		t.Fatal("expected error for unregistered factory")
	}
	if !strings.Contains(err.Error(), "not registered") || !strings.Contains(err.Error(), "known") {
		t.Errorf("expected 'not registered' listing known factories, got %q", err.Error())
	}
}

func TestRegistryCreateFactoryError(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("broken", func(cfg map[string]any) (*testProvider, error) {
		return nil, fmt.Errorf("missing base_url")
	})
	if _, err := reg.Create("broken", nil); err == nil || !strings.Contains(err.Error(), "missing base_url") {
		t.Errorf("expected factory error to propagate, got %v", err)
	}
	if _, ok := reg.Get("broken"); ok {
		t.Error("failed instance must not be cached")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("beta", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{name: "beta"}, nil
	})
	reg.RegisterFactory("alpha", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{name: "alpha"}, nil
	})

	names := reg.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("expected sorted [alpha, beta], got %v", names)
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	if s := Check(ctx, &testProvider{name: "up", available: true}); s.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", s.Status)
	}
	down := Check(ctx, &testProvider{name: "down"})
	if down.Status != StatusUnavailable || !strings.Contains(down.Message, "down") {
		t.Errorf("expected unavailable with name in message, got %+v", down)
	}
	if s := Check(ctx, &detailedProvider{}); s.Status != StatusDegraded {
		t.Errorf("expected HealthChecker result, got %s", s.Status)
	}
}

func TestRegistryCheckAll(t *testing.T) {
	reg := NewRegistry[Provider]()
	reg.Set("segmentation", &testProvider{name: "seg", available: true})
	reg.Set("embedding", &testProvider{name: "emb"})

	results := reg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["segmentation"].Status != StatusHealthy {
		t.Errorf("expected segmentation healthy, got %s", results["segmentation"].Status)
	}
	if results["embedding"].Status != StatusUnavailable {
		t.Errorf("expected embedding unavailable, got %s", results["embedding"].Status)
	}
}

func TestStatusMarshalText(t *testing.T) {
	b, _ := StatusDegraded.MarshalText()
	if string(b) != "degraded" {
		t.Errorf("expected 'degraded', got %q", b)
	}
}
