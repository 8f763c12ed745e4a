// Package gdocs exports note documents as Google Docs.
//
// The OAuth refresh token lives in a sealed file managed by the secrets
// vault; the interactive consent flow runs once through the CLI and the
// target only ever reads the sealed token afterwards.
package gdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/skillsenselab/voicenotes/export"
	"github.com/skillsenselab/voicenotes/provider"
	"github.com/skillsenselab/voicenotes/secrets"
)

const (
	// ProviderName is the registered name for the Google Docs target.
	ProviderName = "gdocs"

	defaultBaseURL = "https://docs.googleapis.com"
	defaultTimeout = 30 * time.Second

	// DocumentsScope is the OAuth scope required to create documents.
	DocumentsScope = "https://www.googleapis.com/auth/documents"
)

// Config holds configuration for the Google Docs export target.
type Config struct {
	ClientID     string        `json:"client_id" yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string        `json:"client_secret" yaml:"client_secret" mapstructure:"client_secret"`
	TokenFile    string        `json:"token_file" yaml:"token_file" mapstructure:"token_file"`
	BaseURL      string        `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Target implements export.Target against the Google Docs REST API.
type Target struct {
	cfg   Config
	vault *secrets.Vault
}

// NewTarget creates a Google Docs export target. The vault opens the
// sealed token file named by the config.
func NewTarget(cfg Config, vault *secrets.Vault) *Target {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Target{cfg: cfg, vault: vault}
}

// Factory returns a provider.Factory that creates Google Docs targets
// from a generic config map, sharing one vault.
func Factory(vault *secrets.Vault) provider.Factory[export.Target] {
	return func(cfg map[string]any) (export.Target, error) {
		gc := Config{}
		if v, ok := cfg["client_id"].(string); ok {
			gc.ClientID = v
		}
		if v, ok := cfg["client_secret"].(string); ok {
			gc.ClientSecret = v
		}
		if v, ok := cfg["token_file"].(string); ok {
			gc.TokenFile = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			gc.BaseURL = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			gc.Timeout = v
		}
		return NewTarget(gc, vault), nil
	}
}

// Name returns the target name.
func (t *Target) Name() string { return ProviderName }

// IsAvailable reports whether a sealed token can be opened.
func (t *Target) IsAvailable(ctx context.Context) bool {
	if t.cfg.ClientID == "" || t.cfg.TokenFile == "" {
		return false
	}
	_, err := t.loadToken()
	return err == nil
}

// OAuthConfig returns the oauth2 config for the documents scope. The
// CLI uses it for the one-time consent flow.
func (t *Target) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     t.cfg.ClientID,
		ClientSecret: t.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{DocumentsScope},
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
	}
}

// SaveToken seals an OAuth token into the configured token file.
func (t *Target) SaveToken(tok *oauth2.Token) error {
	if t.vault == nil {
		return fmt.Errorf("token vault not configured")
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode oauth token: %w", err)
	}
	return t.vault.WriteFile(t.cfg.TokenFile, raw)
}

func (t *Target) loadToken() (*oauth2.Token, error) {
	if t.vault == nil {
		return nil, fmt.Errorf("token vault not configured")
	}
	raw, err := t.vault.ReadFile(t.cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

// Export creates a document titled after the notes and inserts the
// Markdown body as plain text.
func (t *Target) Export(ctx context.Context, doc export.Document) (*export.Receipt, error) {
	tok, err := t.loadToken()
	if err != nil {
		return nil, fmt.Errorf("load gdocs token: %w", err)
	}
	client := oauth2.NewClient(ctx, t.OAuthConfig().TokenSource(ctx, tok))
	client.Timeout = t.cfg.Timeout

	docID, err := t.createDocument(ctx, client, doc.Title)
	if err != nil {
		return nil, err
	}
	if err := t.insertBody(ctx, client, docID, doc.Markdown); err != nil {
		return nil, err
	}
	return &export.Receipt{
		Target: ProviderName,
		URL:    fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID),
	}, nil
}

func (t *Target) createDocument(ctx context.Context, client *http.Client, title string) (string, error) {
	body, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v1/documents", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gdocs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", &export.StatusError{Target: ProviderName, Status: resp.StatusCode, Body: string(msg)}
	}

	var created struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode gdocs response: %w", err)
	}
	if created.DocumentID == "" {
		return "", fmt.Errorf("gdocs response missing documentId")
	}
	return created.DocumentID, nil
}

func (t *Target) insertBody(ctx context.Context, client *http.Client, docID, text string) error {
	body, err := json.Marshal(batchUpdateRequest{
		Requests: []updateRequest{{
			InsertText: &insertTextRequest{
				Location: location{Index: 1},
				Text:     text,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("encode batch update: %w", err)
	}
	url := fmt.Sprintf("%s/v1/documents/%s:batchUpdate", t.cfg.BaseURL, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gdocs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return &export.StatusError{Target: ProviderName, Status: resp.StatusCode, Body: string(msg)}
	}
	return nil
}

// --- Docs API request types ---

type batchUpdateRequest struct {
	Requests []updateRequest `json:"requests"`
}

type updateRequest struct {
	InsertText *insertTextRequest `json:"insertText,omitempty"`
}

type insertTextRequest struct {
	Location location `json:"location"`
	Text     string   `json:"text"`
}

type location struct {
	Index int `json:"index"`
}
