// Package openai implements transcription against the hosted OpenAI
// audio API.
//
// The hosted API caps uploads at 25 MB, so runs against it should use a
// segment window small enough to stay under the cap.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/skillsenselab/voicenotes/provider"
	"github.com/skillsenselab/voicenotes/transcription"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the OpenAI transcription provider.
type Config struct {
	APIKey   string        `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string        `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Model    string        `json:"model,omitempty" yaml:"model" mapstructure:"model"`
	Language string        `json:"language,omitempty" yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout" mapstructure:"timeout"`
}

// Provider implements transcription.Provider using the OpenAI audio API.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a new OpenAI transcription provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Provider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Factory returns a provider.Factory that creates OpenAI Provider
// instances from a generic config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(cfg map[string]any) (transcription.Provider, error) {
		oc := Config{}
		if v, ok := cfg["api_key"].(string); ok {
			oc.APIKey = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			oc.BaseURL = v
		}
		if v, ok := cfg["model"].(string); ok {
			oc.Model = v
		}
		if v, ok := cfg["language"].(string); ok {
			oc.Language = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			oc.Timeout = v
		}
		return NewProvider(oc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider is configured. The hosted
// API is not probed; availability checks must stay cheap enough for
// health endpoints to call on every request.
func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.cfg.APIKey != ""
}

// Transcribe uploads an audio file to the OpenAI audio API and returns
// the transcript.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	_ = writer.WriteField("model", model)
	_ = writer.WriteField("response_format", "verbose_json")
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	var result verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}

	return toResult(&result), nil
}

// --- internal verbose_json response types ---

type verboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []verboseSegment `json:"segments"`
}

type verboseSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func toResult(resp *verboseResponse) *transcription.Result {
	pieces := make([]transcription.Piece, len(resp.Segments))
	for i, seg := range resp.Segments {
		pieces[i] = transcription.Piece{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	duration := resp.Duration
	if duration == 0 && len(resp.Segments) > 0 {
		duration = resp.Segments[len(resp.Segments)-1].End
	}

	return &transcription.Result{
		Text:     resp.Text,
		Pieces:   pieces,
		Duration: duration,
		Language: resp.Language,
	}
}
