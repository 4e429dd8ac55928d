package main

import (
	"fmt"

	"github.com/kbukum/streamdiar/config"
	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/diarization/pyannote"
	"github.com/kbukum/streamdiar/observability"
	"github.com/kbukum/streamdiar/server"
	"github.com/kbukum/streamdiar/validation"
)

const serviceName = "diarization-server"

// TelemetryConfig controls the OTLP exporters.
type TelemetryConfig struct {
	Enabled bool                       `mapstructure:"enabled"`
	Tracing observability.TracerConfig `mapstructure:"tracing"`
	Metrics observability.MeterConfig  `mapstructure:"metrics"`
}

// AppConfig is the full configuration of the diarization server.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server      server.Config            `mapstructure:"server"`
	Diarization diarization.Config       `mapstructure:"diarization"`
	Oracles     diarization.OracleConfig `mapstructure:"oracles"`
	Telemetry   TelemetryConfig          `mapstructure:"telemetry"`
}

// newAppConfig returns the config that file and environment values are
// layered onto.
func newAppConfig() *AppConfig {
	return &AppConfig{
		ServiceConfig: config.ServiceConfig{Name: serviceName},
		Diarization:   diarization.DefaultConfig(),
	}
}

// ApplyDefaults fills every section with its defaults.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Diarization.ApplyDefaults()

	if c.Oracles.Segmentation == "" {
		c.Oracles.Segmentation = pyannote.ProviderName
	}
	if c.Oracles.Embedding == "" {
		c.Oracles.Embedding = pyannote.ProviderName
	}

	tracing := observability.DefaultTracerConfig(c.Name)
	fillString(&c.Telemetry.Tracing.ServiceName, c.Name)
	fillString(&c.Telemetry.Tracing.ServiceVersion, c.Version)
	fillString(&c.Telemetry.Tracing.Environment, c.Environment)
	fillString(&c.Telemetry.Tracing.Endpoint, tracing.Endpoint)
	if c.Telemetry.Tracing.SampleRate == 0 {
		c.Telemetry.Tracing.SampleRate = tracing.SampleRate
	}

	metrics := observability.DefaultMeterConfig(c.Name)
	fillString(&c.Telemetry.Metrics.ServiceName, c.Name)
	fillString(&c.Telemetry.Metrics.ServiceVersion, c.Version)
	fillString(&c.Telemetry.Metrics.Environment, c.Environment)
	fillString(&c.Telemetry.Metrics.Endpoint, metrics.Endpoint)
	if c.Telemetry.Metrics.Interval == 0 {
		c.Telemetry.Metrics.Interval = metrics.Interval
	}
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validation.Validate(c.Oracles); err != nil {
		return fmt.Errorf("oracles: %w", err)
	}
	if err := validation.Validate(c.Telemetry.Tracing); err != nil {
		return fmt.Errorf("telemetry.tracing: %w", err)
	}
	return nil
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
