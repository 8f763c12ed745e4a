// Package observability provides OpenTelemetry tracing and metrics export
// for the voicenotes service.
//
// Setup wires both signals from a single config section:
//
//	shutdown, err := observability.Setup(ctx, cfg, observability.Identity{
//	    Name: "voicenotes", Version: version.Version, Environment: env,
//	})
//	defer shutdown(ctx)
//
// Tracing:
//
//	ctx, span := observability.StartSpan(ctx, "transcription.run")
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("voicenotes"))
//	metrics.RecordRequestEnd(ctx, "POST", "/v1/transcriptions", "ok", duration)
//
// Health:
//
//	health := observability.NewServiceHealth("voicenotes", version.Version)
//	health.AddComponent(observability.Health{Name: "decoder:ffmpeg", Status: observability.HealthStatusUp})
package observability
