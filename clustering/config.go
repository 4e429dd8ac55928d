package clustering

import (
	"github.com/kbukum/streamdiar/validation"
)

// Supported distance metrics.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
)

// Config holds the identity tracking thresholds.
type Config struct {
	// TauActive is the mean frame activity a local speaker must exceed to be considered active.
	TauActive float64 `mapstructure:"tau_active"`
	// RhoUpdate is the similarity at or above which a matched identity's centroid is refreshed.
	RhoUpdate float64 `mapstructure:"rho_update"`
	// DeltaNew is the distance below which a local speaker may match an identity.
	DeltaNew    float64 `mapstructure:"delta_new"`
	MaxSpeakers int     `mapstructure:"max_speakers"`
	Metric      string  `mapstructure:"metric"`
	// SurvivalUpdates is the number of centroid updates after which an identity is long-term.
	SurvivalUpdates int `mapstructure:"survival_updates"`
	// RetireAfter retires a short-term identity after this many consecutive
	// low-confidence matches. Zero disables retirement.
	RetireAfter int `mapstructure:"retire_after"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TauActive:       0.6,
		RhoUpdate:       0.3,
		DeltaNew:        1.0,
		MaxSpeakers:     20,
		Metric:          MetricCosine,
		SurvivalUpdates: 3,
	}
}

// Validate checks threshold bounds.
func (c Config) Validate() error {
	v := validation.New().
		InRange("tau_active", c.TauActive, 0, 1).
		Finite("rho_update", c.RhoUpdate).
		Positive("delta_new", c.DeltaNew).
		AtLeast("max_speakers", c.MaxSpeakers, 1).
		OneOf("metric", c.Metric, []string{MetricCosine, MetricEuclidean}).
		AtLeast("survival_updates", c.SurvivalUpdates, 1).
		AtLeast("retire_after", c.RetireAfter, 0)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
