// Package pyannote implements the diarization oracles on top of a pyannote
// model-serving sidecar reached over HTTP.
//
// The sidecar exposes:
//
//	GET  /health   200 when the models are loaded
//	POST /segment  {"sample_rate", "waveforms"}            → {"segmentations"}
//	POST /embed    {"sample_rate", "waveforms", "weights"} → {"embeddings"}
//
// Either POST may answer with {"error": "..."} instead.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/provider"
	"github.com/kbukum/streamdiar/resilience"
	"github.com/kbukum/streamdiar/validation"
)

const (
	// ProviderName is the registered name for the pyannote backends.
	ProviderName = "pyannote"

	defaultBaseURL       = "http://localhost:8388"
	defaultTimeout       = 30 * time.Second
	defaultSampleRate    = 16000
	defaultDuration      = 5.0
	defaultMaxConcurrent = 4
	maxErrorBody         = 4 << 10
)

// Config holds configuration for the pyannote sidecar client.
type Config struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// SampleRate and Duration describe the segmentation model served by the sidecar.
	SampleRate int     `mapstructure:"sample_rate" json:"sample_rate" validate:"gt=0"`
	Duration   float64 `mapstructure:"duration" json:"duration" validate:"gt=0"`
	// MaxConcurrent caps in-flight sidecar requests per client.
	MaxConcurrent int `mapstructure:"max_concurrent" json:"max_concurrent" validate:"gte=0"`
	// MaxFailures consecutive failures open the circuit for Cooldown.
	MaxFailures int           `mapstructure:"max_failures" json:"max_failures" validate:"gte=0"`
	Cooldown    time.Duration `mapstructure:"cooldown" json:"cooldown"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.Duration == 0 {
		c.Duration = defaultDuration
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
}

// ParseConfig decodes a generic factory config map. Durations may be given
// as strings ("30s") and numbers may arrive as any numeric type.
func ParseConfig(m map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, fmt.Errorf("decode pyannote config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := validation.Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Client talks to the sidecar. Calls pass through a bulkhead and a circuit
// breaker; failures are returned, never retried.
type Client struct {
	cfg      Config
	client   *http.Client
	breaker  *resilience.CircuitBreaker
	bulkhead *resilience.Bulkhead
	log      *logger.Logger
}

// NewClient creates a sidecar client.
func NewClient(cfg Config) *Client {
	cfg.ApplyDefaults()
	log := logger.WithComponent("pyannote").WithFields(logger.Fields("base_url", cfg.BaseURL))

	cbCfg := resilience.DefaultCircuitBreakerConfig(ProviderName)
	if cfg.MaxFailures > 0 {
		cbCfg.MaxFailures = cfg.MaxFailures
	}
	if cfg.Cooldown > 0 {
		cbCfg.Cooldown = cfg.Cooldown
	}
	cbCfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("sidecar circuit state changed", logger.Fields("from", from.String(), "to", to.String()))
	}

	bhCfg := resilience.DefaultBulkheadConfig(ProviderName)
	bhCfg.MaxConcurrent = cfg.MaxConcurrent

	return &Client{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  resilience.NewCircuitBreaker(cbCfg),
		bulkhead: resilience.NewBulkhead(bhCfg),
		log:      log,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Config returns the client configuration.
func (c *Client) Config() Config { return c.cfg }

// IsAvailable checks if the sidecar is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Health reports reachability together with the circuit state.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	state := c.breaker.State()
	details := map[string]any{"circuit": state.String(), "in_flight": c.bulkhead.InFlight()}
	switch {
	case state == resilience.StateOpen:
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "circuit open", Details: details}
	case !c.IsAvailable(ctx):
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "sidecar not reachable", Details: details}
	case state == resilience.StateHalfOpen:
		return provider.HealthStatus{Status: provider.StatusDegraded, Message: "recovering", Details: details}
	default:
		return provider.HealthStatus{Status: provider.StatusHealthy, Details: details}
	}
}

// post sends body as JSON to path and decodes the reply into out.
func (c *Client) post(ctx context.Context, path string, body any, out interface{ errorMessage() string }) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	return c.bulkhead.Execute(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			start := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.client.Do(req)
			if err != nil {
				return fmt.Errorf("%s request: %w", path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
				return fmt.Errorf("%s error (status %d): %s", path, resp.StatusCode, bytes.TrimSpace(msg))
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
			if msg := out.errorMessage(); msg != "" {
				return fmt.Errorf("%s error: %s", path, msg)
			}

			c.log.Debug("sidecar call", logger.Fields(
				logger.FieldOperation, path,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			))
			return nil
		})
	})
}

// --- internal sidecar API types ---

type segmentRequest struct {
	SampleRate int         `json:"sample_rate"`
	Waveforms  [][]float32 `json:"waveforms"`
}

type segmentResponse struct {
	Segmentations [][][]float64 `json:"segmentations"`
	Error         string        `json:"error,omitempty"`
}

func (r *segmentResponse) errorMessage() string { return r.Error }

type embedRequest struct {
	SampleRate int           `json:"sample_rate"`
	Waveforms  [][]float32   `json:"waveforms"`
	Weights    [][][]float64 `json:"weights"`
}

type embedResponse struct {
	Embeddings [][][]float64 `json:"embeddings"`
	Error      string        `json:"error,omitempty"`
}

func (r *embedResponse) errorMessage() string { return r.Error }
