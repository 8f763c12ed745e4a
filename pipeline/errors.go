package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAllSegmentsFailed reports a run where no segment produced a
// transcript.
var ErrAllSegmentsFailed = errors.New("pipeline: all segments failed")

// SegmentError records one segment whose transcription failed. The run
// continues past it; the error lands in the outcome's Failed list.
type SegmentError struct {
	// Index is the segment's sequence index within the plan.
	Index int
	// Start and End bound the segment on the recording timeline.
	Start float64
	End   float64
	// Err is the underlying transcription failure.
	Err error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d [%.1fs, %.1fs): %v", e.Index, e.Start, e.End, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// MarshalJSON renders the failure for API responses.
func (e *SegmentError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index int     `json:"index"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Error string  `json:"error"`
	}{e.Index, e.Start, e.End, e.Err.Error()})
}
