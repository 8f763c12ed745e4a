package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillsenselab/voicenotes/audio"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/provider"
	"github.com/skillsenselab/voicenotes/scratch"
	"github.com/skillsenselab/voicenotes/transcription"
)

// Config holds pipeline-wide defaults. A Request can override the
// language, model, and segment cap per run.
type Config struct {
	// Language is the default language hint passed to the recognizer.
	// Empty or "auto" leaves detection to the recognizer.
	Language string `yaml:"language,omitempty" mapstructure:"language"`

	// Model overrides the recognizer's default model when set.
	Model string `yaml:"model,omitempty" mapstructure:"model"`

	// MaxSegmentSeconds caps a single segment's duration. Longer
	// recordings are split into contiguous segments of at most this
	// length.
	MaxSegmentSeconds float64 `yaml:"max_segment_seconds,omitempty" mapstructure:"max_segment_seconds"`

	// DecoderPriority orders decoder selection by name; the first
	// available one wins. Defaults to the order decoders were passed
	// to New.
	DecoderPriority []string `yaml:"decoder_priority,omitempty" mapstructure:"decoder_priority"`

	// Scratch places the per-run workspaces.
	Scratch scratch.Config `yaml:"scratch,omitempty" mapstructure:"scratch"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxSegmentSeconds <= 0 {
		c.MaxSegmentSeconds = audio.DefaultMaxSegmentSeconds
	}
	c.Scratch.ApplyDefaults()
}

// Request describes one recording to transcribe. Exactly one of Path
// and Source must be set. Source input is staged into the run's
// workspace before decoding; Name carries the original filename so the
// staged copy keeps a recognizable extension.
type Request struct {
	Path   string
	Source io.Reader
	Name   string

	// Language overrides the configured language hint for this run.
	Language string

	// Model overrides the configured model for this run.
	Model string

	// MaxSegmentSeconds overrides the configured segment cap when
	// positive.
	MaxSegmentSeconds float64
}

// Pipeline turns one recording into one merged transcript.
type Pipeline struct {
	cfg        Config
	recognizer transcription.Provider
	decoders   map[string]audio.Decoder
	selector   provider.PrioritySelector[audio.Decoder]
	metrics    *runMetrics
	tracer     trace.Tracer
	log        *logger.Logger
}

// New wires a pipeline from a recognizer and at least one decoder.
func New(cfg Config, recognizer transcription.Provider, decoders []audio.Decoder, log *logger.Logger) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if recognizer == nil {
		return nil, fmt.Errorf("pipeline: recognizer is required")
	}
	if len(decoders) == 0 {
		return nil, fmt.Errorf("pipeline: at least one decoder is required")
	}

	byName := make(map[string]audio.Decoder, len(decoders))
	order := make([]string, 0, len(decoders))
	for _, d := range decoders {
		byName[d.Name()] = d
		order = append(order, d.Name())
	}
	priority := cfg.DecoderPriority
	if len(priority) == 0 {
		priority = order
	}

	metrics, err := newRunMetrics()
	if err != nil {
		return nil, fmt.Errorf("pipeline: metrics: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		recognizer: recognizer,
		decoders:   byName,
		selector:   provider.PrioritySelector[audio.Decoder]{Priority: priority},
		metrics:    metrics,
		tracer:     otel.Tracer(scopeName),
		log:        log.WithComponent("pipeline"),
	}, nil
}

// Run transcribes one recording end to end. The Outcome is non-nil on
// success, including partial success where some segments failed. An
// error means no usable transcript was produced; the workspace is
// removed either way.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	out, err := p.run(ctx, req)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.recordRun(ctx, statusFailed, elapsed.Seconds())
	case len(out.Failed) > 0:
		p.metrics.recordRun(ctx, statusPartial, elapsed.Seconds())
	default:
		p.metrics.recordRun(ctx, statusOK, elapsed.Seconds())
	}
	if out != nil {
		p.log.Info("run finished", map[string]interface{}{
			"segments":           len(out.Segments),
			"failed":             len(out.Failed),
			"language":           out.Language,
			logger.FieldDuration: elapsed.Milliseconds(),
		})
	}
	return out, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Outcome, error) {
	ws, err := scratch.New(p.cfg.Scratch, p.log)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	path, err := p.stage(ws, req)
	if err != nil {
		return nil, err
	}

	dec, err := p.selector.Select(ctx, p.decoders)
	if err != nil {
		return nil, fmt.Errorf("pipeline: select decoder: %w", err)
	}

	info, err := dec.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	p.log.Debug("probed recording", map[string]interface{}{
		logger.FieldPath:     path,
		logger.FieldProvider: dec.Name(),
		"codec":              info.Codec,
		"sample_rate":        info.SampleRate,
		"channels":           info.Channels,
		"duration_seconds":   info.Duration,
	})

	maxSeg := req.MaxSegmentSeconds
	if maxSeg <= 0 {
		maxSeg = p.cfg.MaxSegmentSeconds
	}

	chunker := audio.NewChunker(dec, p.log)
	ranges := chunker.Plan(info.Duration, maxSeg)
	segments, err := chunker.Materialize(ctx, path, ranges, func(index int) (string, error) {
		return ws.SegmentPath(index), nil
	})
	if err != nil {
		return nil, err
	}

	return p.transcribe(ctx, req, segments, info)
}

// stage resolves the request to a local file path, copying streamed
// input into the workspace.
func (p *Pipeline) stage(ws *scratch.Workspace, req Request) (string, error) {
	switch {
	case req.Path != "" && req.Source != nil:
		return "", fmt.Errorf("pipeline: request sets both Path and Source")
	case req.Path != "":
		return req.Path, nil
	case req.Source != nil:
		return ws.SaveUpload(req.Source, req.Name)
	default:
		return "", fmt.Errorf("pipeline: request needs a Path or a Source")
	}
}

// transcribe runs the recognizer over the segments in index order and
// merges the results. A failed segment is recorded and skipped; only a
// run with zero successful segments fails outright.
func (p *Pipeline) transcribe(ctx context.Context, req Request, segments []audio.CanonicalSegment, info audio.StreamInfo) (*Outcome, error) {
	language := p.languageHint(req.Language)
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	out := &Outcome{Segments: make([]SegmentResult, 0, len(segments))}
	texts := make([]string, 0, len(segments))
	detected := ""

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := p.transcribeSegment(ctx, seg, language, model)
		if err != nil {
			out.Failed = append(out.Failed, &SegmentError{
				Index: seg.Index,
				Start: seg.Start,
				End:   seg.End,
				Err:   err,
			})
			p.metrics.recordSegment(ctx, statusFailed)
			p.log.Warn("segment transcription failed", map[string]interface{}{
				logger.FieldSegment: seg.Index,
				logger.FieldError:   err.Error(),
			})
			continue
		}

		text := strings.TrimSpace(res.Text)
		out.Segments = append(out.Segments, SegmentResult{
			Index:    seg.Index,
			Start:    seg.Start,
			End:      seg.End,
			Text:     text,
			Language: res.Language,
		})
		if text != "" {
			texts = append(texts, text)
		}
		if res.Language != "" {
			detected = res.Language
		}
		p.metrics.recordSegment(ctx, statusOK)
	}

	if len(out.Segments) == 0 {
		return nil, fmt.Errorf("pipeline: all %d segments failed: %w", len(out.Failed), ErrAllSegmentsFailed)
	}

	out.Text = strings.Join(texts, " ")
	out.Language = detected
	if out.Language == "" {
		out.Language = "unknown"
	}
	out.Duration = info.Duration
	if out.Duration <= 0 {
		out.Duration = segments[len(segments)-1].End
	}
	return out, nil
}

func (p *Pipeline) transcribeSegment(ctx context.Context, seg audio.CanonicalSegment, language, model string) (*transcription.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.segment", trace.WithAttributes(
		attribute.Int("segment.index", seg.Index),
		attribute.Float64("segment.start", seg.Start),
		attribute.Float64("segment.end", seg.End),
	))
	defer span.End()

	res, err := p.recognizer.Transcribe(ctx, transcription.Request{
		AudioPath: seg.Path,
		Language:  language,
		Model:     model,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

// languageHint normalizes the per-request or configured hint. Detection
// placeholders such as "auto" never reach a recognizer.
func (p *Pipeline) languageHint(override string) string {
	hint := override
	if hint == "" {
		hint = p.cfg.Language
	}
	hint = strings.TrimSpace(hint)
	if strings.EqualFold(hint, "auto") {
		return ""
	}
	return hint
}
