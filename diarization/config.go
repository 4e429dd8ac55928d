package diarization

import (
	"math"
	"strconv"
	"strings"

	"github.com/kbukum/streamdiar/clustering"
	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/validation"
)

// Latency presets.
const (
	LatencyMin = "min"
	LatencyMax = "max"
)

// Config configures a diarization Pipeline.
type Config struct {
	// Duration is the chunk length in seconds. Zero uses the segmentation oracle's duration.
	Duration float64 `mapstructure:"duration" json:"duration" validate:"gte=0"`
	// Step is the hop between consecutive chunks in seconds.
	Step float64 `mapstructure:"step" json:"step" validate:"gt=0"`
	// Latency is "min" (= step), "max" (= duration) or a number of seconds.
	Latency   string  `mapstructure:"latency" json:"latency"`
	TauActive float64 `mapstructure:"tau_active" json:"tau_active" validate:"gte=0,lte=1"`
	RhoUpdate float64 `mapstructure:"rho_update" json:"rho_update"`
	DeltaNew  float64 `mapstructure:"delta_new" json:"delta_new" validate:"gt=0"`
	// Gamma and Beta shape the overlap-aware embedding weights.
	Gamma           float64 `mapstructure:"gamma" json:"gamma" validate:"gt=0"`
	Beta            float64 `mapstructure:"beta" json:"beta" validate:"gt=0"`
	MaxSpeakers     int     `mapstructure:"max_speakers" json:"max_speakers" validate:"gte=1"`
	Metric          string  `mapstructure:"metric" json:"metric" validate:"oneof=cosine euclidean"`
	SurvivalUpdates int     `mapstructure:"survival_updates" json:"survival_updates" validate:"gte=1"`
	RetireAfter     int     `mapstructure:"retire_after" json:"retire_after" validate:"gte=0"`
}

// DefaultConfig returns the standard online diarization settings.
func DefaultConfig() Config {
	c := clustering.DefaultConfig()
	return Config{
		Step:            0.5,
		Latency:         LatencyMin,
		TauActive:       c.TauActive,
		RhoUpdate:       c.RhoUpdate,
		DeltaNew:        c.DeltaNew,
		Gamma:           3,
		Beta:            10,
		MaxSpeakers:     c.MaxSpeakers,
		Metric:          c.Metric,
		SurvivalUpdates: c.SurvivalUpdates,
	}
}

// ApplyDefaults fills zero values with DefaultConfig values.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Step == 0 {
		c.Step = d.Step
	}
	if c.Latency == "" {
		c.Latency = d.Latency
	}
	if c.Gamma == 0 {
		c.Gamma = d.Gamma
	}
	if c.Beta == 0 {
		c.Beta = d.Beta
	}
	if c.DeltaNew == 0 {
		c.DeltaNew = d.DeltaNew
	}
	if c.MaxSpeakers == 0 {
		c.MaxSpeakers = d.MaxSpeakers
	}
	if c.Metric == "" {
		c.Metric = d.Metric
	}
	if c.SurvivalUpdates == 0 {
		c.SurvivalUpdates = d.SurvivalUpdates
	}
}

// Clustering returns the identity tracking part of the configuration.
func (c Config) Clustering() clustering.Config {
	return clustering.Config{
		TauActive:       c.TauActive,
		RhoUpdate:       c.RhoUpdate,
		DeltaNew:        c.DeltaNew,
		MaxSpeakers:     c.MaxSpeakers,
		Metric:          c.Metric,
		SurvivalUpdates: c.SurvivalUpdates,
		RetireAfter:     c.RetireAfter,
	}
}

// Settings is a Config with duration, latency and sample rate resolved.
type Settings struct {
	Duration   float64           `json:"duration"`
	Step       float64           `json:"step"`
	Latency    float64           `json:"latency"`
	SampleRate int               `json:"sample_rate"`
	Gamma      float64           `json:"gamma"`
	Beta       float64           `json:"beta"`
	Clustering clustering.Config `json:"clustering"`
}

// ChunkSamples is the number of samples every chunk must carry.
func (s Settings) ChunkSamples() int {
	return int(math.RoundToEven(s.Duration * float64(s.SampleRate)))
}

// Resolve validates c and fixes the values that depend on the segmentation
// model. oracleDuration is used when c.Duration is zero.
func (c Config) Resolve(oracleDuration float64, sampleRate int) (Settings, error) {
	if err := validation.Validate(c); err != nil {
		return Settings{}, err
	}

	duration := c.Duration
	if duration == 0 {
		duration = oracleDuration
	}
	latency, err := c.resolveLatency(duration)
	if err != nil {
		return Settings{}, err
	}

	v := validation.New().
		Positive("duration", duration).
		AtLeast("sample_rate", sampleRate, 1).
		Finite("rho_update", c.RhoUpdate).
		Custom(c.Step <= duration, "step", "must not exceed duration").
		InRange("latency", latency, c.Step, duration)
	if err := v.Validate(); err != nil {
		return Settings{}, err
	}

	return Settings{
		Duration:   duration,
		Step:       c.Step,
		Latency:    latency,
		SampleRate: sampleRate,
		Gamma:      c.Gamma,
		Beta:       c.Beta,
		Clustering: c.Clustering(),
	}, nil
}

func (c Config) resolveLatency(duration float64) (float64, error) {
	switch s := strings.TrimSpace(strings.ToLower(c.Latency)); s {
	case "", LatencyMin:
		return c.Step, nil
	case LatencyMax:
		return duration, nil
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errors.InvalidConfig("latency", `must be "min", "max" or a number of seconds`)
		}
		return v, nil
	}
}
