package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/skillsenselab/voicenotes/audio"
	"github.com/skillsenselab/voicenotes/process"
)

// probeOutput mirrors the ffprobe -print_format json layout, limited to
// the fields the decoder needs.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	TimeBase   string `json:"time_base"`
	Duration   string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe runs ffprobe against the container and describes its first
// audio stream. An unparseable container wraps
// audio.ErrUnreadableContainer; a container with no audio stream wraps
// audio.ErrNoAudioStream.
func (d *Decoder) Probe(ctx context.Context, path string) (audio.StreamInfo, error) {
	res, err := process.Run(ctx, process.Command{
		Binary: d.cfg.FFprobePath,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_streams", "-show_format",
			path,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return audio.StreamInfo{}, err
		}
		return audio.StreamInfo{}, fmt.Errorf("ffmpeg: probe %s: %w: %v", path, audio.ErrUnreadableContainer, err)
	}
	info, err := parseProbeOutput(res.Stdout)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("ffmpeg: probe %s: %w", path, err)
	}
	return info, nil
}

// parseProbeOutput extracts the first audio stream from ffprobe JSON.
func parseProbeOutput(data []byte) (audio.StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return audio.StreamInfo{}, fmt.Errorf("%w: %v", audio.ErrUnreadableContainer, err)
	}

	var sel *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "audio" {
			sel = &out.Streams[i]
			break
		}
	}
	if sel == nil {
		return audio.StreamInfo{}, audio.ErrNoAudioStream
	}

	rate, err := strconv.Atoi(sel.SampleRate)
	if err != nil || rate <= 0 {
		return audio.StreamInfo{}, fmt.Errorf("%w: sample rate %q", audio.ErrUnreadableContainer, sel.SampleRate)
	}

	duration := parseSeconds(sel.Duration)
	if duration <= 0 {
		duration = parseSeconds(out.Format.Duration)
	}

	return audio.StreamInfo{
		Codec:      sel.CodecName,
		SampleRate: rate,
		Channels:   sel.Channels,
		Duration:   duration,
		TimeBase:   parseTimeBase(sel.TimeBase, rate),
	}, nil
}

// parseSeconds parses an ffprobe duration string; zero means unknown.
func parseSeconds(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseTimeBase parses a "num/den" time base, falling back to one tick
// per sample at the given rate.
func parseTimeBase(s string, rate int) audio.Rational {
	num, den, ok := strings.Cut(s, "/")
	if ok {
		n, errN := strconv.Atoi(num)
		d, errD := strconv.Atoi(den)
		if errN == nil && errD == nil && d > 0 {
			return audio.Rational{Num: n, Den: d}
		}
	}
	return audio.Rational{Num: 1, Den: rate}
}
