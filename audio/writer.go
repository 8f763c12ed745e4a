package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SegmentWriter serializes canonical frames into one PCM WAV file. The
// 16-bit PCM encoding is lossless, so no quality is lost beyond the
// mono/16 kHz reduction performed upstream.
type SegmentWriter struct {
	f       *os.File
	enc     *wav.Encoder
	path    string
	index   int
	rng     Range
	samples int64
	closed  bool
}

// NewSegmentWriter creates a writer for the segment with the given
// sequence index covering rng.
func NewSegmentWriter(path string, index int, rng Range) (*SegmentWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create segment %d: %w", index, err)
	}
	enc := wav.NewEncoder(f, CanonicalSampleRate, CanonicalBitDepth, CanonicalChannels, 1)
	return &SegmentWriter{
		f:     f,
		enc:   enc,
		path:  path,
		index: index,
		rng:   rng,
	}, nil
}

// WriteFrame appends one canonical frame to the segment.
func (w *SegmentWriter) WriteFrame(frame Frame) error {
	if w.closed {
		return fmt.Errorf("audio: segment %d: write after close", w.index)
	}
	if frame.Rate != CanonicalSampleRate || frame.Channels != CanonicalChannels {
		return fmt.Errorf("audio: segment %d: non-canonical frame %dHz/%dch", w.index, frame.Rate, frame.Channels)
	}
	if len(frame.Samples) == 0 {
		return nil
	}

	data := make([]int, len(frame.Samples))
	for i, s := range frame.Samples {
		data[i] = int(s)
	}
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: CanonicalChannels,
			SampleRate:  CanonicalSampleRate,
		},
		Data:           data,
		SourceBitDepth: CanonicalBitDepth,
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("audio: segment %d: write frame: %w", w.index, err)
	}
	w.samples += int64(len(frame.Samples))
	return nil
}

// Samples returns the canonical sample count written so far.
func (w *SegmentWriter) Samples() int64 {
	return w.samples
}

// Close finalizes the WAV header and returns the materialized segment.
// A segment that received zero frames is removed from disk and reported
// as ErrNoFramesProcessed; valid recordings never produce empty audio.
func (w *SegmentWriter) Close() (*CanonicalSegment, error) {
	if w.closed {
		return nil, fmt.Errorf("audio: segment %d: already closed", w.index)
	}
	w.closed = true

	if w.samples == 0 {
		w.enc.Close()
		w.f.Close()
		os.Remove(w.path)
		return nil, fmt.Errorf("audio: segment %d: %w", w.index, ErrNoFramesProcessed)
	}

	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return nil, fmt.Errorf("audio: segment %d: finalize: %w", w.index, err)
	}
	if err := w.f.Close(); err != nil {
		return nil, fmt.Errorf("audio: segment %d: close: %w", w.index, err)
	}

	end := w.rng.End
	if w.rng.Unbounded {
		end = w.rng.Start + float64(w.samples)/float64(CanonicalSampleRate)
	}
	return &CanonicalSegment{
		Index:   w.index,
		Start:   w.rng.Start,
		End:     end,
		Path:    w.path,
		Samples: w.samples,
	}, nil
}
