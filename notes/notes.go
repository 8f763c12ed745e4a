package notes

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxSummary   = 10
	maxKeyPoints = 6
	maxQuestions = 6
	maxActions   = 12
)

// keywords mark sentences that tend to carry the substance of a
// meeting. Each hit adds two points.
var keywords = []string{
	"goal", "plan", "strategy", "important", "priority", "deadline",
	"problem", "issue", "risk", "decision", "next", "because",
	"metric", "kpi", "revenue", "customer", "pipeline", "follow up",
}

// hedges soften a sentence; any hit costs one point.
var hedges = []string{"i think", "maybe", "kind of"}

// sentenceBoundary ends a sentence at whitespace following a
// terminator, or at any newline run.
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+|\n+`)

var spaceRun = regexp.MustCompile(`\s+`)

// Notes is the structured digest of one transcript.
type Notes struct {
	Summary   []string `json:"summary"`
	Actions   []string `json:"actions"`
	KeyPoints []string `json:"key_points"`
	Questions []string `json:"questions"`
}

// Analyze builds notes from a transcript. All four lists are non-nil;
// an empty transcript yields empty lists.
func Analyze(transcript string) *Notes {
	sentences := splitSentences(transcript)

	n := &Notes{
		Summary:   []string{},
		Actions:   extractActions(sentences),
		KeyPoints: []string{},
		Questions: []string{},
	}
	if len(sentences) == 0 {
		return n
	}

	// Stable rank by score keeps equal-scored sentences in transcript
	// order.
	ranked := make([]int, len(sentences))
	for i := range ranked {
		ranked[i] = i
	}
	scores := make([]int, len(sentences))
	for i, s := range sentences {
		scores[i] = scoreSentence(s)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})

	inSummary := make(map[int]bool, maxSummary)
	for _, idx := range ranked {
		if len(inSummary) == maxSummary {
			break
		}
		inSummary[idx] = true
	}
	// Summary bullets read in transcript order, not rank order.
	for i, s := range sentences {
		if inSummary[i] {
			n.Summary = append(n.Summary, s)
		}
	}

	for _, s := range sentences {
		if strings.HasSuffix(s, "?") {
			n.Questions = append(n.Questions, s)
			if len(n.Questions) == maxQuestions {
				break
			}
		}
	}

	for _, idx := range ranked {
		if inSummary[idx] || strings.HasSuffix(sentences[idx], "?") {
			continue
		}
		n.KeyPoints = append(n.KeyPoints, sentences[idx])
		if len(n.KeyPoints) == maxKeyPoints {
			break
		}
	}

	return n
}

// splitSentences breaks text into trimmed sentences, keeping each
// sentence's terminator.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceBoundary.FindAllStringIndex(text, -1) {
		end := m[0]
		switch text[m[0]] {
		case '.', '!', '?':
			end = m[0] + 1
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = m[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// scoreSentence prefers medium-length sentences that name concrete
// meeting concerns and penalizes hedged ones.
func scoreSentence(s string) int {
	lower := strings.ToLower(s)

	score := utf8.RuneCountInString(s) / 40
	if score > 3 {
		score = 3
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			score += 2
		}
	}
	for _, h := range hedges {
		if strings.Contains(lower, h) {
			score--
			break
		}
	}
	return score
}
