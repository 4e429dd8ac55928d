// Package provider defines the pluggable backend pattern used for the
// segmentation and embedding oracles.
//
// A backend implements Provider, registers a Factory under a name, and is
// instantiated at startup from a generic config map so the binary can
// pick backends from configuration.
package provider

import "context"

// Provider is the base interface all providers must implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider instance from configuration.
type Factory[T Provider] func(cfg map[string]any) (T, error)
