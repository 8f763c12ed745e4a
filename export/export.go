// Package export publishes rendered note documents to external
// workspaces.
//
// Targets register through the provider registry the same way
// transcription backends do. Export failures are advisory: callers
// report them alongside the transcription result instead of failing
// the run that produced it.
package export

import (
	"context"

	"github.com/skillsenselab/voicenotes/provider"
)

// Document is the content handed to an export target.
type Document struct {
	// Title names the created page or document.
	Title string
	// Markdown is the full rendered notes document.
	Markdown string
	// Actions carries the action items separately, for targets that
	// surface them as a dedicated property.
	Actions []string
}

// Receipt reports where an export landed.
type Receipt struct {
	Target string `json:"target"`
	URL    string `json:"url,omitempty"`
}

// Target publishes a document to one external service.
type Target interface {
	provider.Provider
	Export(ctx context.Context, doc Document) (*Receipt, error)
}

// NewRegistry creates an empty registry for export targets.
func NewRegistry() *provider.Registry[Target] {
	return provider.NewRegistry[Target]()
}
