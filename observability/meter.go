package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/streamdiar/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string        `mapstructure:"endpoint"`
	Insecure bool          `mapstructure:"insecure"`
	Interval time.Duration `mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it globally.
// The returned provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the diarization metric instruments.
type Metrics struct {
	chunks          metric.Int64Counter
	batchDuration   metric.Float64Histogram
	speakersCreated metric.Int64Counter
	speakersDropped metric.Int64Counter
	errors          metric.Int64Counter
	sessionsActive  metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	chunks, err := meter.Int64Counter("diarization.chunks",
		metric.WithDescription("Number of audio chunks processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.chunks counter: %w", err)
	}

	batchDuration, err := meter.Float64Histogram("diarization.batch.duration",
		metric.WithDescription("Wall time spent processing one batch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.batch.duration histogram: %w", err)
	}

	created, err := meter.Int64Counter("diarization.speakers.created",
		metric.WithDescription("Global speaker identities created"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.speakers.created counter: %w", err)
	}

	dropped, err := meter.Int64Counter("diarization.speakers.dropped",
		metric.WithDescription("Active local speakers left unassigned because the identity cap was reached"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.speakers.dropped counter: %w", err)
	}

	errCounter, err := meter.Int64Counter("diarization.errors",
		metric.WithDescription("Failed batches by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.errors counter: %w", err)
	}

	sessions, err := meter.Int64UpDownCounter("diarization.sessions.active",
		metric.WithDescription("Number of open diarization sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.sessions.active gauge: %w", err)
	}

	return &Metrics{
		chunks:          chunks,
		batchDuration:   batchDuration,
		speakersCreated: created,
		speakersDropped: dropped,
		errors:          errCounter,
		sessionsActive:  sessions,
	}, nil
}

// RecordBatch records one successfully processed batch.
func (m *Metrics) RecordBatch(ctx context.Context, chunks int, duration time.Duration) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, int64(chunks))
	m.batchDuration.Record(ctx, duration.Seconds())
}

// RecordSpeakers records identities created and local speakers dropped.
func (m *Metrics) RecordSpeakers(ctx context.Context, created, dropped int) {
	if m == nil {
		return
	}
	if created > 0 {
		m.speakersCreated.Add(ctx, int64(created))
	}
	if dropped > 0 {
		m.speakersDropped.Add(ctx, int64(dropped))
	}
}

// RecordError records a failed batch by error code.
func (m *Metrics) RecordError(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrErrorCode, code)))
}

// SessionOpened increments the open session gauge.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

// SessionClosed decrements the open session gauge.
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
}
