package native

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/skillsenselab/voicenotes/audio"
)

// vorbisChunkSamples is how many interleaved samples each decode call
// pulls from the stream.
const vorbisChunkSamples = 16384

func probeVorbis(f *os.File) (audio.StreamInfo, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("native: %w: %v", audio.ErrUnreadableContainer, err)
	}
	rate := r.SampleRate()
	return audio.StreamInfo{
		Codec:      "vorbis",
		SampleRate: rate,
		Channels:   r.Channels(),
		TimeBase:   audio.Rational{Num: 1, Den: rate},
	}, nil
}

func openVorbis(f *os.File) (audio.Stream, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("native: %w: %v", audio.ErrUnreadableContainer, err)
	}

	rate := r.SampleRate()
	return &vorbisStream{
		f: f,
		r: r,
		info: audio.StreamInfo{
			Codec:      "vorbis",
			SampleRate: rate,
			Channels:   r.Channels(),
			TimeBase:   audio.Rational{Num: 1, Den: rate},
		},
		buf: make([]float32, vorbisChunkSamples),
	}, nil
}

// vorbisStream reads interleaved float samples and rescales them to
// 16-bit.
type vorbisStream struct {
	f    *os.File
	r    *oggvorbis.Reader
	info audio.StreamInfo
	buf  []float32
	// position is the per-channel sample offset of the next frame.
	position int64
	done     bool
}

func (s *vorbisStream) Info() audio.StreamInfo { return s.info }

func (s *vorbisStream) Next(ctx context.Context) (audio.Frame, bool, error) {
	if s.done {
		return audio.Frame{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, false, err
	}

	n, err := s.r.Read(s.buf)
	if n == 0 {
		s.done = true
		if err != nil && err != io.EOF {
			return audio.Frame{}, false, fmt.Errorf("native: vorbis decode: %w", err)
		}
		return audio.Frame{}, false, nil
	}

	samples := make([]int16, n)
	for i, v := range s.buf[:n] {
		samples[i] = floatTo16(v)
	}

	frame := audio.Frame{
		Samples:  samples,
		Rate:     s.info.SampleRate,
		Channels: s.info.Channels,
		TS:       float64(s.position) / float64(s.info.SampleRate),
		HasTS:    true,
	}
	s.position += int64(n / s.info.Channels)
	return frame, true, nil
}

func (s *vorbisStream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// floatTo16 rescales a [-1, 1] float sample to 16-bit with clamping.
func floatTo16(v float32) int16 {
	s := int32(v * 32767)
	if s > 32767 {
		s = 32767
	}
	if s < -32768 {
		s = -32768
	}
	return int16(s)
}
