package audio

import "fmt"

// Canonical format constants. All downstream processing assumes this
// representation.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16
)

// DefaultMaxSegmentSeconds bounds one canonical segment. Twenty minutes
// stays within typical model input limits while keeping per-call
// overhead low.
const DefaultMaxSegmentSeconds = 1200.0

// Rational is a stream time base. Ticks multiplied by Num/Den give
// seconds.
type Rational struct {
	Num int
	Den int
}

// Seconds converts a tick count in this time base to seconds.
func (r Rational) Seconds(ticks int64) float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(ticks) * float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// StreamInfo describes the selected audio stream of an opened container.
type StreamInfo struct {
	// Codec is the stream codec name as reported by the decoder.
	Codec string
	// SampleRate is the native sample rate in Hz.
	SampleRate int
	// Channels is the native channel count.
	Channels int
	// Duration is the total duration in seconds. Zero means unknown.
	Duration float64
	// TimeBase converts stream ticks to seconds.
	TimeBase Rational
}

// Frame is one decoded unit of audio. Samples are interleaved signed
// 16-bit values at the frame's native rate and channel count.
//
// A frame may carry no presentation timestamp; downstream components
// must tolerate that, not fail on it.
type Frame struct {
	Samples  []int16
	Rate     int
	Channels int
	// TS is the presentation timestamp of the first sample, in seconds.
	TS float64
	// HasTS reports whether TS is valid.
	HasTS bool
}

// SampleCount returns the per-channel sample count.
func (f Frame) SampleCount() int {
	if f.Channels <= 0 {
		return 0
	}
	return len(f.Samples) / f.Channels
}

// Duration returns the frame duration in seconds.
func (f Frame) Duration() float64 {
	if f.Rate <= 0 {
		return 0
	}
	return float64(f.SampleCount()) / float64(f.Rate)
}

// Range is one planned slice [Start, End) of the recording timeline, in
// seconds. An unbounded range extends to the end of the stream.
type Range struct {
	Start     float64
	End       float64
	Unbounded bool
}

// Contains reports whether ts falls inside [Start, End). A timestamp
// exactly at End belongs to the next range, never this one.
func (r Range) Contains(ts float64) bool {
	if ts < r.Start {
		return false
	}
	if r.Unbounded {
		return true
	}
	return ts < r.End
}

// Duration returns the range length in seconds, zero if unbounded.
func (r Range) Duration() float64 {
	if r.Unbounded {
		return 0
	}
	return r.End - r.Start
}

func (r Range) String() string {
	if r.Unbounded {
		return fmt.Sprintf("[%.1fs, end)", r.Start)
	}
	return fmt.Sprintf("[%.1fs, %.1fs)", r.Start, r.End)
}

// CanonicalSegment is one materialized canonical-PCM WAV file covering
// [Start, End) of the original timeline.
type CanonicalSegment struct {
	// Index is the sequence index within the plan. Merge order follows
	// this index.
	Index int
	// Start and End bound the covered time range in seconds.
	Start float64
	End   float64
	// Path is the WAV file location.
	Path string
	// Samples is the canonical sample count written.
	Samples int64
}

// Duration returns the segment length in seconds.
func (s CanonicalSegment) Duration() float64 {
	return s.End - s.Start
}
