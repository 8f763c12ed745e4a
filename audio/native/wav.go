package native

import (
	"context"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/skillsenselab/voicenotes/audio"
)

// wavChunkSamples is how many interleaved samples each decode call
// pulls from the file.
const wavChunkSamples = 16384

func probeWAV(f *os.File) (audio.StreamInfo, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return audio.StreamInfo{}, fmt.Errorf("native: %w", audio.ErrUnreadableContainer)
	}

	var seconds float64
	if dur, err := dec.Duration(); err == nil {
		seconds = dur.Seconds()
	}

	rate := int(dec.SampleRate)
	return audio.StreamInfo{
		Codec:      "pcm",
		SampleRate: rate,
		Channels:   int(dec.NumChans),
		Duration:   seconds,
		TimeBase:   audio.Rational{Num: 1, Den: rate},
	}, nil
}

func openWAV(f *os.File) (audio.Stream, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("native: %w", audio.ErrUnreadableContainer)
	}

	rate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	return &wavStream{
		f:   f,
		dec: dec,
		info: audio.StreamInfo{
			Codec:      "pcm",
			SampleRate: rate,
			Channels:   channels,
			TimeBase:   audio.Rational{Num: 1, Den: rate},
		},
		depth: int(dec.BitDepth),
		buf: &gaudio.IntBuffer{
			Data:           make([]int, wavChunkSamples),
			Format:         &gaudio.Format{NumChannels: channels, SampleRate: rate},
			SourceBitDepth: int(dec.BitDepth),
		},
	}, nil
}

// wavStream reads PCM in chunks off a go-audio decoder, rescaling
// whatever the source bit depth is to 16-bit.
type wavStream struct {
	f     *os.File
	dec   *wav.Decoder
	info  audio.StreamInfo
	buf   *gaudio.IntBuffer
	depth int
	// position is the per-channel sample offset of the next frame.
	position int64
	done     bool
}

func (s *wavStream) Info() audio.StreamInfo { return s.info }

func (s *wavStream) Next(ctx context.Context) (audio.Frame, bool, error) {
	if s.done {
		return audio.Frame{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, false, err
	}

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		s.done = true
		return audio.Frame{}, false, fmt.Errorf("native: wav decode: %w", err)
	}
	if n == 0 {
		s.done = true
		return audio.Frame{}, false, nil
	}

	samples := make([]int16, n)
	for i, v := range s.buf.Data[:n] {
		samples[i] = rescaleTo16(v, s.depth)
	}

	f := audio.Frame{
		Samples:  samples,
		Rate:     s.info.SampleRate,
		Channels: s.info.Channels,
		TS:       float64(s.position) / float64(s.info.SampleRate),
		HasTS:    true,
	}
	s.position += int64(n / s.info.Channels)
	return f, true, nil
}

func (s *wavStream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// rescaleTo16 converts a sample at the source bit depth to 16-bit.
// 8-bit WAV is unsigned; the wider depths are signed.
func rescaleTo16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 16:
		return int16(v)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		if v > 32767 {
			return 32767
		}
		if v < -32768 {
			return -32768
		}
		return int16(v)
	}
}
