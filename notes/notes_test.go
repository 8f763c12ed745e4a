package notes

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminators kept",
			text: "First point. Second point! Third point?",
			want: []string{"First point.", "Second point!", "Third point?"},
		},
		{
			name: "newlines split without terminator",
			text: "line one\nline two\n\nline three",
			want: []string{"line one", "line two", "line three"},
		},
		{
			name: "ellipsis stays with its sentence",
			text: "Wait... what happened",
			want: []string{"Wait...", "what happened"},
		},
		{
			name: "surrounding whitespace trimmed",
			text: "  Hello there.   General remark.  ",
			want: []string{"Hello there.", "General remark."},
		},
		{
			name: "empty input",
			text: "   \n  ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestScoreSentence(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		want     int
	}{
		{"short neutral", "Hello.", 0},
		{"keyword hit", "The deadline is Friday.", 2},
		{"two keywords", "We plan around the risk.", 4},
		{"hedge penalty once", "I think maybe we wait.", -1},
		{"length bonus", strings.Repeat("x", 85) + ".", 2},
		{"length bonus capped", strings.Repeat("x", 300) + ".", 3},
		{"keyword plus length", "The customer " + strings.Repeat("x", 40) + ".", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreSentence(tt.sentence); got != tt.want {
				t.Errorf("scoreSentence(%q) = %d, want %d", tt.sentence, got, tt.want)
			}
		})
	}
}

func TestAnalyzeSummaryReadsInTranscriptOrder(t *testing.T) {
	words := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "We plan item %s. ", w)
	}
	b.WriteString("Filler words only. More filler words.")

	n := Analyze(b.String())
	if len(n.Summary) != 10 {
		t.Fatalf("got %d summary bullets, want 10", len(n.Summary))
	}
	for i, w := range words {
		want := fmt.Sprintf("We plan item %s.", w)
		if n.Summary[i] != want {
			t.Errorf("Summary[%d] = %q, want %q", i, n.Summary[i], want)
		}
	}
	wantKP := []string{"Filler words only.", "More filler words."}
	if !reflect.DeepEqual(n.KeyPoints, wantKP) {
		t.Errorf("KeyPoints = %q, want %q", n.KeyPoints, wantKP)
	}
}

func TestAnalyzeQuestionsCappedInOrder(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "Is point %d settled? ", i)
	}
	n := Analyze(b.String())

	if len(n.Questions) != maxQuestions {
		t.Fatalf("got %d questions, want %d", len(n.Questions), maxQuestions)
	}
	for i, q := range n.Questions {
		want := fmt.Sprintf("Is point %d settled?", i+1)
		if q != want {
			t.Errorf("Questions[%d] = %q, want %q", i, q, want)
		}
	}
}

func TestAnalyzeKeyPointsSkipQuestions(t *testing.T) {
	words := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "We plan around the risk item %s. ", w)
	}
	b.WriteString("What is the deadline? Filler words only. More filler words.")

	n := Analyze(b.String())
	if len(n.Summary) != 10 {
		t.Fatalf("got %d summary bullets, want 10", len(n.Summary))
	}
	for _, kp := range n.KeyPoints {
		if strings.HasSuffix(kp, "?") {
			t.Errorf("question leaked into key points: %q", kp)
		}
	}
	wantKP := []string{"Filler words only.", "More filler words."}
	if !reflect.DeepEqual(n.KeyPoints, wantKP) {
		t.Errorf("KeyPoints = %q, want %q", n.KeyPoints, wantKP)
	}
	if len(n.Questions) != 1 || n.Questions[0] != "What is the deadline?" {
		t.Errorf("Questions = %q, want the deadline question", n.Questions)
	}
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	n := Analyze("")
	if n.Summary == nil || n.Actions == nil || n.KeyPoints == nil || n.Questions == nil {
		t.Fatal("all lists must be non-nil for an empty transcript")
	}
	if len(n.Summary)+len(n.Actions)+len(n.KeyPoints)+len(n.Questions) != 0 {
		t.Errorf("expected empty notes, got %+v", n)
	}
}

func TestAnalyzeActions(t *testing.T) {
	transcript := "I need to send the report. The weather is nice. " +
		"We should call the vendor. I NEED TO   send the report."

	n := Analyze(transcript)
	want := []string{"I need to send the report.", "We should call the vendor."}
	if !reflect.DeepEqual(n.Actions, want) {
		t.Errorf("Actions = %q, want %q", n.Actions, want)
	}
}

func TestActionsRespectWordBoundaries(t *testing.T) {
	tests := []struct {
		sentence string
		want     bool
	}{
		{"They recalled the product.", false},
		{"The context matters here.", false},
		{"She updates the roadmap weekly.", false},
		{"Call the vendor tomorrow.", true},
		{"Add a todo for the release.", true},
		{"I'll finish the draft tonight.", true},
	}
	for _, tt := range tests {
		if got := isAction(tt.sentence); got != tt.want {
			t.Errorf("isAction(%q) = %v, want %v", tt.sentence, got, tt.want)
		}
	}
}

func TestActionsCapped(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, "I will handle task number %d. ", i)
	}
	n := Analyze(b.String())
	if len(n.Actions) != maxActions {
		t.Errorf("got %d actions, want %d", len(n.Actions), maxActions)
	}
}
