// Package native decodes WAV, Ogg Vorbis and Ogg Opus containers in
// pure Go, with no external binaries. It is the fallback decoder for
// hosts without ffmpeg installed.
//
// The container format is sniffed from magic bytes. Unknown containers
// wrap audio.ErrUnreadableContainer; anything beyond the three formats
// above needs the ffmpeg decoder.
package native

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/skillsenselab/voicenotes/audio"
	"github.com/skillsenselab/voicenotes/logger"
)

// container kinds detected by sniffing.
const (
	kindWAV    = "wav"
	kindVorbis = "vorbis"
	kindOpus   = "opus"
)

// Decoder decodes the built-in container formats.
type Decoder struct {
	log *logger.Logger
}

// New creates a native decoder.
func New(log *logger.Logger) *Decoder {
	return &Decoder{log: log.WithComponent("native")}
}

// Name implements audio.Decoder.
func (d *Decoder) Name() string { return "native" }

// IsAvailable always reports true; the native decoder has no external
// requirements.
func (d *Decoder) IsAvailable(_ context.Context) bool { return true }

// Probe sniffs the container and describes its audio stream. Ogg
// durations are reported as unknown; walking the whole file for the
// final granule position is not worth it when the planner degrades to a
// single unbounded segment anyway.
func (d *Decoder) Probe(ctx context.Context, path string) (audio.StreamInfo, error) {
	if err := ctx.Err(); err != nil {
		return audio.StreamInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("native: probe %s: %w", path, err)
	}
	defer f.Close()

	kind, err := sniff(f)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("native: probe %s: %w", path, err)
	}

	switch kind {
	case kindWAV:
		return probeWAV(f)
	case kindVorbis:
		return probeVorbis(f)
	default:
		return probeOpus(f)
	}
}

// Open sniffs the container and returns a decoding stream over its
// audio samples.
func (d *Decoder) Open(ctx context.Context, path string) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("native: open %s: %w", path, err)
	}

	kind, err := sniff(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("native: open %s: %w", path, err)
	}

	d.log.Debug("decode started", map[string]interface{}{
		logger.FieldPath: path,
		"container":      kind,
	})

	switch kind {
	case kindWAV:
		return openWAV(f)
	case kindVorbis:
		return openVorbis(f)
	default:
		return openOpus(f)
	}
}

// sniff identifies the container from magic bytes, rewinding the file
// to the start afterwards.
func sniff(f *os.File) (string, error) {
	defer f.Seek(0, io.SeekStart)

	var head [12]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return "", audio.ErrUnreadableContainer
	}

	if bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")) {
		return kindWAV, nil
	}
	if bytes.Equal(head[0:4], []byte("OggS")) {
		return sniffOgg(f)
	}
	return "", audio.ErrUnreadableContainer
}

// sniffOgg reads the first Ogg page payload to distinguish Vorbis from
// Opus. The file position is not restored here; sniff rewinds.
func sniffOgg(f *os.File) (string, error) {
	if _, err := f.Seek(26, io.SeekStart); err != nil {
		return "", audio.ErrUnreadableContainer
	}
	var nseg [1]byte
	if _, err := io.ReadFull(f, nseg[:]); err != nil {
		return "", audio.ErrUnreadableContainer
	}
	if _, err := f.Seek(int64(nseg[0]), io.SeekCurrent); err != nil {
		return "", audio.ErrUnreadableContainer
	}

	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return "", audio.ErrUnreadableContainer
	}
	if bytes.Equal(magic[0:7], []byte("\x01vorbis")) {
		return kindVorbis, nil
	}
	if bytes.Equal(magic[0:8], []byte("OpusHead")) {
		return kindOpus, nil
	}
	return "", audio.ErrUnreadableContainer
}
