package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/skillsenselab/voicenotes/pipeline"

// run statuses recorded on metrics.
const (
	statusOK      = "ok"
	statusPartial = "partial"
	statusFailed  = "failed"
)

type runMetrics struct {
	runs       metric.Int64Counter
	segments   metric.Int64Counter
	runSeconds metric.Float64Histogram
}

func newRunMetrics() (*runMetrics, error) {
	meter := otel.Meter(scopeName)

	runs, err := meter.Int64Counter("voicenotes.runs",
		metric.WithDescription("Completed transcription runs by status."))
	if err != nil {
		return nil, err
	}
	segments, err := meter.Int64Counter("voicenotes.segments",
		metric.WithDescription("Transcribed segments by status."))
	if err != nil {
		return nil, err
	}
	runSeconds, err := meter.Float64Histogram("voicenotes.run.duration",
		metric.WithDescription("End-to-end transcription run duration."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &runMetrics{runs: runs, segments: segments, runSeconds: runSeconds}, nil
}

func (m *runMetrics) recordRun(ctx context.Context, status string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runs.Add(ctx, 1, attrs)
	m.runSeconds.Record(ctx, seconds, attrs)
}

func (m *runMetrics) recordSegment(ctx context.Context, status string) {
	m.segments.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
