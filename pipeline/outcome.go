package pipeline

// Outcome is the merged result of one transcription run.
type Outcome struct {
	// Text is the merged transcript, built from the successful
	// segments in sequence order.
	Text string `json:"text"`
	// Language is the detected language, taken from the last
	// successful segment that reported one; "unknown" otherwise.
	Language string `json:"language"`
	// Duration is the recording length in seconds.
	Duration float64 `json:"duration_seconds"`
	// Segments lists the per-segment transcripts that succeeded.
	Segments []SegmentResult `json:"segments"`
	// Failed lists the segments whose transcription failed.
	Failed []*SegmentError `json:"failed,omitempty"`
}

// SegmentResult is one successfully transcribed segment.
type SegmentResult struct {
	// Index is the segment's sequence index within the plan.
	Index int `json:"index"`
	// Start and End bound the segment on the recording timeline.
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Text is the segment transcript, whitespace-trimmed. It may be
	// empty for silent audio; empty texts are excluded from the merged
	// transcript but still count as successes.
	Text string `json:"text"`
	// Language is the language the backend reported for this segment.
	Language string `json:"language,omitempty"`
}
