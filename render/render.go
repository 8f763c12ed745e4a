// Package render turns a transcription outcome and its notes into the
// final Markdown document.
package render

import (
	"strings"
	"time"

	"github.com/skillsenselab/voicenotes/notes"
)

// Document collects everything the Markdown rendering needs.
type Document struct {
	// Title heads the document.
	Title string
	// GeneratedAt stamps the document; zero means now.
	GeneratedAt time.Time
	// Transcript is the full merged transcript.
	Transcript string
	// Notes may be nil when analysis was skipped; all sections then
	// render as empty.
	Notes *notes.Notes
}

// Markdown renders the document. Sections always appear in the same
// order; an empty list section renders a single "- (none)" bullet.
func Markdown(doc Document) string {
	ts := doc.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	n := doc.Notes
	if n == nil {
		n = &notes.Notes{}
	}

	sections := []string{
		"# " + doc.Title + "\n",
		"_Generated " + ts.UTC().Format(time.RFC3339) + "_\n",
		"## Summary\n" + bullets(n.Summary) + "\n",
		"## Action Items\n" + bullets(n.Actions) + "\n",
		"## Key Points\n" + bullets(n.KeyPoints) + "\n",
		"## Questions\n" + bullets(n.Questions) + "\n",
		"## Full Transcript\n" + strings.TrimSpace(doc.Transcript) + "\n",
	}
	return strings.Join(sections, "\n")
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
