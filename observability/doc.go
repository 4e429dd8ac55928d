// Package observability provides OpenTelemetry tracing and metrics for the
// diarization service.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("diarization-server"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanProcess)
//	defer observability.EndSpan(span, err)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("diarization-server"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("diarization-server"))
//	metrics.RecordBatch(ctx, len(chunks), time.Since(start))
//
// A nil *Metrics is valid and records nothing.
package observability
