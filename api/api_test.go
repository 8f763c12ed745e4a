package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voicenotes/api"
	"github.com/skillsenselab/voicenotes/audio"
	apperrors "github.com/skillsenselab/voicenotes/errors"
	"github.com/skillsenselab/voicenotes/export"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/pipeline"
)

type fakeRunner struct {
	out  *pipeline.Outcome
	err  error
	got  pipeline.Request
	data []byte
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	f.got = req
	if req.Source != nil {
		f.data, _ = io.ReadAll(req.Source)
	}
	return f.out, f.err
}

type fakeTarget struct {
	name    string
	receipt *export.Receipt
	err     error
	gotDoc  export.Document
}

func (f *fakeTarget) Name() string { return f.name }

func (f *fakeTarget) IsAvailable(_ context.Context) bool { return true }

func (f *fakeTarget) Export(_ context.Context, doc export.Document) (*export.Receipt, error) {
	f.gotDoc = doc
	return f.receipt, f.err
}

func newEngine(t *testing.T, h *api.Handler, mw ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h.Register(engine, mw...)
	return engine
}

// multipartBody builds a multipart request body. An empty filename skips the
// file part entirely.
func multipartBody(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write([]byte("fake audio bytes")); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s) error = %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postTranscription(t *testing.T, engine *gin.Engine, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, fields)
	req := httptest.NewRequest("POST", "/v1/transcriptions", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

type responseEnvelope struct {
	Data api.TranscriptionResponse `json:"data"`
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder) api.TranscriptionResponse {
	t.Helper()
	var env responseEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return env.Data
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorBody {
	t.Helper()
	var env apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("error response is not valid JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return env.Error
}

func TestCreateTranscribesUpload(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{
		Text:     "hello world",
		Language: "en",
		Duration: 4.2,
	}}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "standup.ogg", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	data := decodeData(t, rr)
	if data.Transcript != "hello world" {
		t.Errorf("transcript = %q, want %q", data.Transcript, "hello world")
	}
	if data.Language != "en" {
		t.Errorf("language = %q, want en", data.Language)
	}
	if data.Duration != 4.2 {
		t.Errorf("duration_seconds = %v, want 4.2", data.Duration)
	}
	if data.FailedRanges == nil || len(data.FailedRanges) != 0 {
		t.Errorf("failed_ranges = %v, want empty list", data.FailedRanges)
	}
	if data.Notes != nil {
		t.Errorf("notes should be omitted unless requested, got %v", data.Notes)
	}

	if runner.got.Name != "standup.ogg" {
		t.Errorf("request name = %q, want standup.ogg", runner.got.Name)
	}
	if string(runner.data) != "fake audio bytes" {
		t.Errorf("uploaded bytes = %q, want the file content", runner.data)
	}
}

func TestCreateForwardsOptions(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{Text: "ok", Language: "de"}}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "memo.wav", map[string]string{
		"language":            "de",
		"max_segment_seconds": "600",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if runner.got.Language != "de" {
		t.Errorf("language forwarded = %q, want de", runner.got.Language)
	}
	if runner.got.MaxSegmentSeconds != 600 {
		t.Errorf("max segment forwarded = %v, want 600", runner.got.MaxSegmentSeconds)
	}
}

func TestCreateRequiresFile(t *testing.T) {
	runner := &fakeRunner{}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	errBody := decodeError(t, rr)
	if errBody.Code != apperrors.ErrCodeInvalidInput {
		t.Errorf("code = %s, want %s", errBody.Code, apperrors.ErrCodeInvalidInput)
	}
	if !strings.Contains(errBody.Message, "file") {
		t.Errorf("message %q should name the missing field", errBody.Message)
	}
}

func TestCreateValidatesFields(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"bad language", map[string]string{"language": "12!"}, "language"},
		{"non numeric max segment", map[string]string{"max_segment_seconds": "abc"}, "max_segment_seconds"},
		{"max segment too small", map[string]string{"max_segment_seconds": "0.5"}, "max_segment_seconds"},
		{"max segment too large", map[string]string{"max_segment_seconds": "90000"}, "max_segment_seconds"},
		{"bad notes flag", map[string]string{"notes": "sure"}, "notes"},
		{"unknown export", map[string]string{"export": "slack"}, "export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
			engine := newEngine(t, h)

			rr := postTranscription(t, engine, "memo.wav", tt.fields)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			errBody := decodeError(t, rr)
			if !strings.Contains(errBody.Message, tt.want) {
				t.Errorf("message %q should mention %q", errBody.Message, tt.want)
			}
		})
	}
}

func TestCreateAcceptsAutoLanguage(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{Text: "ok", Language: "en"}}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "memo.wav", map[string]string{"language": "auto"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for auto language, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateUnconfiguredExport(t *testing.T) {
	runner := &fakeRunner{}
	registry := export.NewRegistry()
	h := api.NewHandler(runner, registry, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "memo.wav", map[string]string{"export": "gdocs"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unconfigured target, got %d", rr.Code)
	}
	if runner.got.Name != "" {
		t.Error("pipeline should not run when validation fails")
	}
}

func TestCreateMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		runErr     error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{
			"unreadable container",
			fmt.Errorf("probe: %w", audio.ErrUnreadableContainer),
			http.StatusUnprocessableEntity,
			apperrors.ErrCodeUnreadableRecording,
		},
		{
			"no audio stream",
			fmt.Errorf("probe: %w", audio.ErrNoAudioStream),
			http.StatusUnprocessableEntity,
			apperrors.ErrCodeNoSpeech,
		},
		{
			"no frames",
			fmt.Errorf("chunk: %w", audio.ErrNoFramesProcessed),
			http.StatusUnprocessableEntity,
			apperrors.ErrCodeNoSpeech,
		},
		{
			"all segments failed",
			fmt.Errorf("pipeline: all 3 segments failed: %w", pipeline.ErrAllSegmentsFailed),
			http.StatusBadGateway,
			apperrors.ErrCodeTranscriptionFailed,
		},
		{
			"unexpected error",
			errors.New("disk on fire"),
			http.StatusInternalServerError,
			apperrors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{err: tt.runErr}
			h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
			engine := newEngine(t, h)

			rr := postTranscription(t, engine, "memo.wav", nil)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			errBody := decodeError(t, rr)
			if errBody.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", errBody.Code, tt.wantCode)
			}
		})
	}
}

func TestCreateReportsFailedRanges(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{
		Text:     "first third",
		Language: "en",
		Duration: 3600,
		Failed: []*pipeline.SegmentError{
			{Index: 1, Start: 1200, End: 2400, Err: errors.New("backend 500")},
		},
	}}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "allhands.mp3", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("partial success should stay 200, got %d", rr.Code)
	}

	var env struct {
		Data struct {
			FailedRanges []struct {
				Index int     `json:"index"`
				Start float64 `json:"start"`
				End   float64 `json:"end"`
				Error string  `json:"error"`
			} `json:"failed_ranges"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(env.Data.FailedRanges) != 1 {
		t.Fatalf("failed_ranges count = %d, want 1", len(env.Data.FailedRanges))
	}
	fr := env.Data.FailedRanges[0]
	if fr.Index != 1 || fr.Start != 1200 || fr.End != 2400 {
		t.Errorf("failed range = %+v, want index 1 spanning [1200, 2400)", fr)
	}
	if fr.Error == "" {
		t.Error("failed range should carry the error message")
	}
}

func TestCreateWithNotes(t *testing.T) {
	transcript := "We decided to ship the beta next week. I'll prepare the " +
		"release notes before Friday. What about the pricing page?"
	runner := &fakeRunner{out: &pipeline.Outcome{Text: transcript, Language: "en"}}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "planning.wav", map[string]string{"notes": "true"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeData(t, rr)
	if data.Notes == nil {
		t.Fatal("expected notes in response")
	}
	if len(data.Notes.Summary) == 0 {
		t.Error("expected a non-empty summary")
	}
	if len(data.Notes.Actions) == 0 {
		t.Error("expected the action item to be extracted")
	}
}

func TestCreateWithExport(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{Text: "ship it", Language: "en"}}
	target := &fakeTarget{
		name:    "notion",
		receipt: &export.Receipt{Target: "notion", URL: "https://notion.so/abc123"},
	}
	registry := export.NewRegistry()
	registry.Set("notion", target)

	h := api.NewHandler(runner, registry, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "standup.ogg", map[string]string{
		"export": "notion",
		"title":  "Monday standup",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeData(t, rr)
	if data.Export == nil || data.Export.URL != "https://notion.so/abc123" {
		t.Fatalf("export receipt = %+v, want the notion URL", data.Export)
	}
	if data.ExportError != "" {
		t.Errorf("export_error = %q, want empty", data.ExportError)
	}

	if target.gotDoc.Title != "Monday standup" {
		t.Errorf("exported title = %q, want %q", target.gotDoc.Title, "Monday standup")
	}
	if !strings.Contains(target.gotDoc.Markdown, "ship it") {
		t.Errorf("exported markdown should contain the transcript, got %q", target.gotDoc.Markdown)
	}
}

func TestCreateExportFailureIsAdvisory(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{Text: "still here", Language: "en"}}
	target := &fakeTarget{name: "notion", err: errors.New("notion: 503")}
	registry := export.NewRegistry()
	registry.Set("notion", target)

	h := api.NewHandler(runner, registry, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "memo.wav", map[string]string{"export": "notion"})

	if rr.Code != http.StatusOK {
		t.Fatalf("export failure must not fail the request, got %d", rr.Code)
	}
	data := decodeData(t, rr)
	if data.Transcript != "still here" {
		t.Errorf("transcript = %q, want it preserved", data.Transcript)
	}
	if data.Export != nil {
		t.Errorf("export receipt should be absent, got %+v", data.Export)
	}
	if data.ExportError == "" {
		t.Error("expected an export_error advisory")
	}
}

func TestCreateDefaultsTitleFromFilename(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{Text: "x", Language: "en"}}
	target := &fakeTarget{name: "notion", receipt: &export.Receipt{Target: "notion"}}
	registry := export.NewRegistry()
	registry.Set("notion", target)

	h := api.NewHandler(runner, registry, nil, logger.NewDefault("test"))
	engine := newEngine(t, h)

	rr := postTranscription(t, engine, "team-sync.ogg", map[string]string{"export": "notion"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if target.gotDoc.Title != "team-sync" {
		t.Errorf("default title = %q, want team-sync", target.gotDoc.Title)
	}
}

func TestRegisterAppliesMiddleware(t *testing.T) {
	runner := &fakeRunner{out: &pipeline.Outcome{Text: "x"}}
	h := api.NewHandler(runner, nil, nil, logger.NewDefault("test"))

	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no"})
	}
	engine := newEngine(t, h, deny)

	rr := postTranscription(t, engine, "memo.wav", nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("route middleware should run first, got %d", rr.Code)
	}
	if runner.got.Name != "" {
		t.Error("handler should not run when middleware aborts")
	}
}
