// Package notion exports note documents as pages in a Notion database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skillsenselab/voicenotes/export"
	"github.com/skillsenselab/voicenotes/provider"
)

const (
	// ProviderName is the registered name for the Notion target.
	ProviderName = "notion"

	defaultBaseURL = "https://api.notion.com"
	defaultTimeout = 30 * time.Second
	notionVersion  = "2022-06-28"

	// blockChunkSize keeps paragraph content under Notion's ~2000
	// character rich-text limit.
	blockChunkSize = 1800
	// actionPropLimit caps the Action Items property content.
	actionPropLimit = 1900
)

// Config holds configuration for the Notion export target.
type Config struct {
	Token      string        `json:"token" yaml:"token" mapstructure:"token"`
	DatabaseID string        `json:"database_id" yaml:"database_id" mapstructure:"database_id"`
	BaseURL    string        `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Target implements export.Target against the Notion REST API.
type Target struct {
	cfg    Config
	client *http.Client
}

// NewTarget creates a Notion export target.
func NewTarget(cfg Config) *Target {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Target{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Factory returns a provider.Factory that creates Notion targets from a
// generic config map.
func Factory() provider.Factory[export.Target] {
	return func(cfg map[string]any) (export.Target, error) {
		nc := Config{}
		if v, ok := cfg["token"].(string); ok {
			nc.Token = v
		}
		if v, ok := cfg["database_id"].(string); ok {
			nc.DatabaseID = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			nc.BaseURL = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			nc.Timeout = v
		}
		return NewTarget(nc), nil
	}
}

// Name returns the target name.
func (t *Target) Name() string { return ProviderName }

// IsAvailable reports whether the target is configured. Notion has no
// cheap health endpoint, so no API call is made.
func (t *Target) IsAvailable(ctx context.Context) bool {
	return t.cfg.Token != "" && t.cfg.DatabaseID != ""
}

// Export creates a database page titled after the document, with the
// action items in a rich-text property and the Markdown body as
// paragraph blocks.
func (t *Target) Export(ctx context.Context, doc export.Document) (*export.Receipt, error) {
	body, err := json.Marshal(t.pageRequest(doc))
	if err != nil {
		return nil, fmt.Errorf("encode notion page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &export.StatusError{Target: ProviderName, Status: resp.StatusCode, Body: string(msg)}
	}

	var page struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode notion response: %w", err)
	}
	return &export.Receipt{Target: ProviderName, URL: page.URL}, nil
}

// --- Notion API request types ---

type pageRequest struct {
	Parent     parentRef      `json:"parent"`
	Properties map[string]any `json:"properties"`
	Children   []block        `json:"children"`
}

type parentRef struct {
	DatabaseID string `json:"database_id"`
}

type richText struct {
	Type string   `json:"type"`
	Text textSpan `json:"text"`
}

type textSpan struct {
	Content string `json:"content"`
}

type block struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Heading2  *blockText `json:"heading_2,omitempty"`
	Paragraph *blockText `json:"paragraph,omitempty"`
}

type blockText struct {
	RichText []richText `json:"rich_text"`
}

func (t *Target) pageRequest(doc export.Document) pageRequest {
	children := []block{{
		Object:   "block",
		Type:     "heading_2",
		Heading2: &blockText{RichText: []richText{rt("Notes")}},
	}}
	for _, chunk := range chunkRunes(doc.Markdown, blockChunkSize) {
		children = append(children, block{
			Object:    "block",
			Type:      "paragraph",
			Paragraph: &blockText{RichText: []richText{rt(chunk)}},
		})
	}

	return pageRequest{
		Parent: parentRef{DatabaseID: t.cfg.DatabaseID},
		Properties: map[string]any{
			"Name": map[string]any{"title": []richText{rt(doc.Title)}},
			"Date": map[string]any{"date": map[string]string{
				"start": time.Now().UTC().Format(time.RFC3339),
			}},
			"Action Items": map[string]any{"rich_text": []richText{
				rt(truncateRunes(actionText(doc.Actions), actionPropLimit)),
			}},
		},
		Children: children,
	}
}

func rt(content string) richText {
	return richText{Type: "text", Text: textSpan{Content: content}}
}

func actionText(actions []string) string {
	if len(actions) == 0 {
		return "(none)"
	}
	lines := make([]string, len(actions))
	for i, a := range actions {
		lines[i] = "- " + a
	}
	return strings.Join(lines, "\n")
}

// chunkRunes splits on rune boundaries so multi-byte characters never
// straddle two blocks.
func chunkRunes(s string, size int) []string {
	runes := []rune(s)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
