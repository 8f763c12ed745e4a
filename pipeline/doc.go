// Package pipeline orchestrates a full transcription run: stage the
// recording into a scratch workspace, decode and normalize it into
// canonical WAV segments, transcribe each segment in order, and merge
// the per-segment transcripts into one result.
//
// A run degrades rather than dies: a segment whose transcription fails
// is recorded and skipped, and the merged transcript is built from the
// segments that succeeded. Only a run where every segment fails
// reports ErrAllSegmentsFailed.
//
// The scratch workspace is removed when the run ends, however it ends.
package pipeline
