package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voicenotes/audio"
	apperrors "github.com/skillsenselab/voicenotes/errors"
	"github.com/skillsenselab/voicenotes/export"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/notes"
	"github.com/skillsenselab/voicenotes/observability"
	"github.com/skillsenselab/voicenotes/pipeline"
	"github.com/skillsenselab/voicenotes/provider"
	"github.com/skillsenselab/voicenotes/render"
	"github.com/skillsenselab/voicenotes/server"
	"github.com/skillsenselab/voicenotes/validation"
)

const transcriptionsRoute = "/v1/transcriptions"

// Runner is the pipeline surface the handler drives.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Handler serves the transcription API.
type Handler struct {
	runner  Runner
	exports *provider.Registry[export.Target]
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewHandler creates the API handler. exports and metrics may be nil when no
// export targets are configured or metrics are disabled.
func NewHandler(runner Runner, exports *provider.Registry[export.Target], metrics *observability.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		runner:  runner,
		exports: exports,
		metrics: metrics,
		log:     log.WithComponent("api"),
	}
}

// Register mounts the API routes on the engine. Extra per-route middleware
// (auth, rate limiting) runs before the handler.
func (h *Handler) Register(engine *gin.Engine, mw ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mw...), h.Create)
	engine.POST(transcriptionsRoute, handlers...)
}

// TranscriptionResponse is the body returned for one finished run.
type TranscriptionResponse struct {
	Transcript   string                   `json:"transcript"`
	Language     string                   `json:"language"`
	Duration     float64                  `json:"duration_seconds"`
	FailedRanges []*pipeline.SegmentError `json:"failed_ranges"`
	Notes        *notes.Notes             `json:"notes,omitempty"`
	Export       *export.Receipt          `json:"export,omitempty"`
	ExportError  string                   `json:"export_error,omitempty"`
}

// Create handles POST /v1/transcriptions: multipart upload in, synchronous
// transcription out. Export failures are advisory; the transcript is
// returned either way.
func (h *Handler) Create(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	if h.metrics != nil {
		h.metrics.RecordRequestStart(ctx)
		defer func() {
			h.metrics.RecordRequestEnd(ctx, c.Request.Method, transcriptionsRoute,
				strconv.Itoa(c.Writer.Status()), time.Since(start))
		}()
	}

	form, appErr := h.parseForm(c)
	if appErr != nil {
		server.RespondWithError(c, appErr)
		return
	}
	defer form.file.Close()

	out, err := h.runner.Run(ctx, pipeline.Request{
		Source:            form.file,
		Name:              form.filename,
		Language:          form.language,
		MaxSegmentSeconds: form.maxSegment,
	})
	if err != nil {
		server.RespondWithError(c, mapRunError(err))
		return
	}

	resp := &TranscriptionResponse{
		Transcript:   out.Text,
		Language:     out.Language,
		Duration:     out.Duration,
		FailedRanges: out.Failed,
	}
	if resp.FailedRanges == nil {
		resp.FailedRanges = []*pipeline.SegmentError{}
	}

	var digest *notes.Notes
	if form.notes || form.export != "" {
		digest = notes.Analyze(out.Text)
	}
	if form.notes {
		resp.Notes = digest
	}

	if form.export != "" {
		receipt, err := h.export(ctx, form, out, digest)
		if err != nil {
			resp.ExportError = apperrors.ExportFailed(form.export, err).Message
			h.log.Warn("export failed", map[string]interface{}{
				"target":          form.export,
				logger.FieldError: err.Error(),
			})
		} else {
			resp.Export = receipt
		}
	}

	server.RespondOK(c, resp)
}

// transcriptionForm holds the parsed and validated multipart fields.
type transcriptionForm struct {
	file       multipart.File
	filename   string
	title      string
	language   string
	maxSegment float64
	notes      bool
	export     string
}

// languagePattern accepts ISO-639-1 tags with an optional region suffix.
const languagePattern = `^[a-z]{2}(-[A-Za-z]{2})?$`

func (h *Handler) parseForm(c *gin.Context) (*transcriptionForm, *apperrors.AppError) {
	v := validation.New()
	form := &transcriptionForm{}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		v.AddError("file", "is required")
	} else {
		form.file = file
		form.filename = header.Filename
	}

	form.language = strings.TrimSpace(c.PostForm("language"))
	if form.language != "" && !strings.EqualFold(form.language, "auto") {
		v.Pattern("language", form.language, languagePattern)
	}

	if raw := strings.TrimSpace(c.PostForm("max_segment_seconds")); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			v.AddError("max_segment_seconds", "must be a number")
		} else {
			v.RangeFloat("max_segment_seconds", secs, 1, 7200)
			form.maxSegment = secs
		}
	}

	if raw := strings.TrimSpace(c.PostForm("notes")); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			v.AddError("notes", "must be true or false")
		}
		form.notes = val
	}

	form.export = strings.TrimSpace(c.PostForm("export"))
	switch form.export {
	case "", "none":
		form.export = ""
	case "notion", "gdocs":
		if h.exports == nil {
			v.AddError("export", "no export targets are configured")
		} else if _, ok := h.exports.Get(form.export); !ok {
			v.AddError("export", fmt.Sprintf("target %q is not configured", form.export))
		}
	default:
		v.AddError("export", "must be one of: notion, gdocs, none")
	}

	form.title = strings.TrimSpace(c.PostForm("title"))
	if form.title == "" {
		form.title = titleFromFilename(form.filename)
	}

	if appErr := v.Validate(); appErr != nil {
		if form.file != nil {
			form.file.Close()
		}
		return nil, appErr
	}
	return form, nil
}

// export renders the notes document and hands it to the requested target.
func (h *Handler) export(ctx context.Context, form *transcriptionForm, out *pipeline.Outcome, digest *notes.Notes) (*export.Receipt, error) {
	target, ok := h.exports.Get(form.export)
	if !ok {
		return nil, fmt.Errorf("api: export target %q is not configured", form.export)
	}

	md := render.Markdown(render.Document{
		Title:      form.title,
		Transcript: out.Text,
		Notes:      digest,
	})

	receipt, err := target.Export(ctx, export.Document{
		Title:    form.title,
		Markdown: md,
		Actions:  digest.Actions,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordError(ctx, "export_failed", form.export)
		}
		return nil, err
	}
	return receipt, nil
}

// mapRunError translates pipeline failures into API errors: undecodable or
// silent input is the client's problem, a fully failed transcription is the
// backend's.
func mapRunError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, audio.ErrUnreadableContainer),
		errors.Is(err, audio.ErrUnsupportedLayout):
		return apperrors.UnreadableRecording(err)
	case errors.Is(err, audio.ErrNoAudioStream),
		errors.Is(err, audio.ErrNoFramesProcessed):
		return apperrors.NoSpeech(err)
	case errors.Is(err, pipeline.ErrAllSegmentsFailed):
		return apperrors.TranscriptionFailed(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("transcription")
	default:
		return apperrors.Wrap(err)
	}
}

// titleFromFilename derives a document title from the upload name.
func titleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return "Voice notes " + time.Now().Format("2006-01-02")
	}
	return base
}
