package audio

import (
	"fmt"
	"math"
)

// Resampler converts raw frames to canonical format: mono, 16 kHz,
// signed 16-bit PCM. It is stateful across calls so arbitrary input
// frame sizes lose or duplicate no samples at frame boundaries; state
// is scoped to one decode pass. Call Flush at end of stream to drain
// the buffered remainder.
type Resampler struct {
	srcRate     int
	srcChannels int
	step        float64

	// pending holds downmixed source-rate samples not yet consumed by
	// interpolation; pos is the fractional read position into it.
	pending []float64
	pos     float64

	emitted int64
}

// NewResampler creates a resampler for one decode pass over a stream
// with the given native rate and channel count. Returns
// ErrUnsupportedLayout when the layout cannot be reduced to mono.
func NewResampler(srcRate, srcChannels int) (*Resampler, error) {
	if srcChannels < 1 {
		return nil, fmt.Errorf("audio: %d channels: %w", srcChannels, ErrUnsupportedLayout)
	}
	if srcRate <= 0 {
		return nil, fmt.Errorf("audio: invalid source sample rate %d", srcRate)
	}
	return &Resampler{
		srcRate:     srcRate,
		srcChannels: srcChannels,
		step:        float64(srcRate) / float64(CanonicalSampleRate),
	}, nil
}

// Convert feeds one raw frame and returns at most one canonical frame.
// The returned bool reports whether a frame was emitted; short inputs
// may buffer without emitting. The output frame inherits the input
// frame's timestamp, or its absence.
func (r *Resampler) Convert(f Frame) (Frame, bool, error) {
	if f.Rate != r.srcRate || f.Channels != r.srcChannels {
		return Frame{}, false, fmt.Errorf("audio: frame format changed mid-stream: got %dHz/%dch, want %dHz/%dch",
			f.Rate, f.Channels, r.srcRate, r.srcChannels)
	}

	r.downmix(f.Samples)

	out := r.interpolate(false)
	if len(out) == 0 {
		return Frame{}, false, nil
	}
	return Frame{
		Samples:  out,
		Rate:     CanonicalSampleRate,
		Channels: CanonicalChannels,
		TS:       f.TS,
		HasTS:    f.HasTS,
	}, true, nil
}

// Flush drains the buffered remainder as a final canonical frame. The
// flushed frame carries no timestamp; it belongs to whatever range is
// active when it arrives. The resampler must not be reused afterwards.
func (r *Resampler) Flush() (Frame, bool) {
	out := r.interpolate(true)
	r.pending = nil
	r.pos = 0
	if len(out) == 0 {
		return Frame{}, false
	}
	return Frame{
		Samples:  out,
		Rate:     CanonicalSampleRate,
		Channels: CanonicalChannels,
	}, true
}

// Emitted returns the total canonical samples produced so far.
func (r *Resampler) Emitted() int64 {
	return r.emitted
}

// downmix averages interleaved channels into mono and appends to the
// pending buffer.
func (r *Resampler) downmix(samples []int16) {
	n := len(samples) / r.srcChannels
	for i := 0; i < n; i++ {
		var sum float64
		for ch := 0; ch < r.srcChannels; ch++ {
			sum += float64(samples[i*r.srcChannels+ch])
		}
		r.pending = append(r.pending, sum/float64(r.srcChannels))
	}
}

// interpolate consumes pending samples by linear interpolation. In
// normal operation it stops while one lookahead sample remains so the
// next frame can interpolate across the boundary; draining clamps the
// lookahead to the final sample instead.
func (r *Resampler) interpolate(drain bool) []int16 {
	var out []int16
	for {
		idx := int(r.pos)
		if drain {
			if idx >= len(r.pending) {
				break
			}
		} else if idx+1 >= len(r.pending) {
			break
		}
		frac := r.pos - float64(idx)
		s0 := r.pending[idx]
		s1 := s0
		if idx+1 < len(r.pending) {
			s1 = r.pending[idx+1]
		}
		out = append(out, clampInt16(s0+frac*(s1-s0)))
		r.pos += r.step
	}

	// Drop fully consumed samples, keeping the interpolation window.
	if consumed := int(r.pos); consumed > 0 && !drain {
		if consumed > len(r.pending) {
			consumed = len(r.pending)
		}
		r.pending = append(r.pending[:0], r.pending[consumed:]...)
		r.pos -= float64(consumed)
	}

	r.emitted += int64(len(out))
	return out
}

func clampInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
