// Package ffmpeg decodes audio containers by shelling out to the ffmpeg
// and ffprobe binaries. It handles every container and codec the local
// ffmpeg build does, which makes it the preferred decoder whenever the
// binaries are installed.
//
// Decoding streams raw little-endian 16-bit PCM over a pipe at the
// stream's native sample rate and channel count. Timestamps are
// synthesized from the cumulative sample position, so every frame
// carries one.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/skillsenselab/voicenotes/audio"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/process"
)

// readChunkSize is the pipe read buffer size in bytes.
const readChunkSize = 64 * 1024

// Config configures the ffmpeg decoder.
type Config struct {
	// FFmpegPath is the ffmpeg binary path or name (resolved via PATH).
	FFmpegPath string `yaml:"ffmpeg_path,omitempty" mapstructure:"ffmpeg_path"`
	// FFprobePath is the ffprobe binary path or name.
	FFprobePath string `yaml:"ffprobe_path,omitempty" mapstructure:"ffprobe_path"`
	// GracePeriod is how long to wait after SIGTERM before SIGKILL when
	// a decode is stopped early.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
}

// ApplyDefaults fills in default binary names.
func (c *Config) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
}

// Decoder decodes audio through the ffmpeg command-line tools.
type Decoder struct {
	cfg Config
	log *logger.Logger
}

// New creates an ffmpeg decoder.
func New(cfg Config, log *logger.Logger) *Decoder {
	cfg.ApplyDefaults()
	return &Decoder{cfg: cfg, log: log.WithComponent("ffmpeg")}
}

// Name implements audio.Decoder.
func (d *Decoder) Name() string { return "ffmpeg" }

// IsAvailable reports whether both the ffmpeg and ffprobe binaries
// resolve on this host.
func (d *Decoder) IsAvailable(_ context.Context) bool {
	if _, err := exec.LookPath(d.cfg.FFmpegPath); err != nil {
		return false
	}
	if _, err := exec.LookPath(d.cfg.FFprobePath); err != nil {
		return false
	}
	return true
}

// Open probes the container and starts an ffmpeg subprocess streaming
// the first audio stream as raw PCM.
func (d *Decoder) Open(ctx context.Context, path string) (audio.Stream, error) {
	info, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.Channels < 1 {
		return nil, fmt.Errorf("ffmpeg: open %s: %w", path, audio.ErrUnsupportedLayout)
	}

	h, err := process.Start(ctx, process.Command{
		Binary:      d.cfg.FFmpegPath,
		Args:        decodeArgs(path),
		GracePeriod: d.cfg.GracePeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: open %s: %w", path, err)
	}

	d.log.Debug("decode started", map[string]interface{}{
		logger.FieldPath: path,
		"codec":          info.Codec,
		"rate":           info.SampleRate,
		"channels":       info.Channels,
	})

	return &stream{
		h:      h,
		info:   info,
		path:   path,
		buf:    make([]byte, readChunkSize),
		stride: 2 * info.Channels,
	}, nil
}

// decodeArgs builds the ffmpeg invocation for streaming the first audio
// stream as s16le at its native rate and layout.
func decodeArgs(path string) []string {
	return []string{
		"-nostdin", "-v", "error",
		"-i", path,
		"-vn", "-sn", "-dn",
		"-map", "0:a:0",
		"-f", "s16le",
		"-c:a", "pcm_s16le",
		"-",
	}
}

// stream reads interleaved s16le samples off the ffmpeg pipe.
type stream struct {
	h      *process.Handle
	info   audio.StreamInfo
	path   string
	buf    []byte
	rem    []byte
	stride int
	// position is the per-channel sample offset of the next frame.
	position int64
	done     bool
	closed   bool
}

func (s *stream) Info() audio.StreamInfo { return s.info }

func (s *stream) Next(ctx context.Context) (audio.Frame, bool, error) {
	if s.done {
		return audio.Frame{}, false, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return audio.Frame{}, false, err
		}

		n, readErr := s.h.Stdout().Read(s.buf)
		if n > 0 {
			s.rem = append(s.rem, s.buf[:n]...)
			if usable := len(s.rem) - len(s.rem)%s.stride; usable > 0 {
				f := s.frame(s.rem[:usable])
				s.rem = s.rem[:copy(s.rem, s.rem[usable:])]
				return f, true, nil
			}
		}

		if readErr == io.EOF {
			s.done = true
			if err := s.h.Wait(); err != nil {
				if tail := bytes.TrimSpace(s.h.Stderr()); len(tail) > 0 {
					return audio.Frame{}, false, fmt.Errorf("ffmpeg: decode %s: %w: %s", s.path, err, tail)
				}
				return audio.Frame{}, false, fmt.Errorf("ffmpeg: decode %s: %w", s.path, err)
			}
			return audio.Frame{}, false, nil
		}
		if readErr != nil {
			s.done = true
			return audio.Frame{}, false, fmt.Errorf("ffmpeg: read decoded stream: %w", readErr)
		}
	}
}

// frame converts one run of complete interleaved samples, stamping it
// with the timeline position derived from samples decoded so far.
func (s *stream) frame(data []byte) audio.Frame {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	f := audio.Frame{
		Samples:  samples,
		Rate:     s.info.SampleRate,
		Channels: s.info.Channels,
		TS:       float64(s.position) / float64(s.info.SampleRate),
		HasTS:    true,
	}
	s.position += int64(len(samples) / s.info.Channels)
	return f
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.h.Stop()
	return nil
}
