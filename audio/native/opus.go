package native

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pion/opus"

	"github.com/skillsenselab/voicenotes/audio"
)

// Opus always decodes at 48 kHz and pion produces mono output, one
// 20 ms frame per packet.
const (
	opusDecodeRate   = 48000
	opusFrameSamples = 960
)

func probeOpus(_ *os.File) (audio.StreamInfo, error) {
	return audio.StreamInfo{
		Codec:      "opus",
		SampleRate: opusDecodeRate,
		Channels:   1,
		TimeBase:   audio.Rational{Num: 1, Den: opusDecodeRate},
	}, nil
}

func openOpus(f *os.File) (audio.Stream, error) {
	info, _ := probeOpus(f)
	return &opusStream{
		f:    f,
		br:   bufio.NewReaderSize(f, 64*1024),
		dec:  opus.NewDecoder(),
		info: info,
		pcm:  make([]byte, opusFrameSamples*2),
	}, nil
}

// opusStream walks Ogg pages and decodes one packet per frame.
type opusStream struct {
	f    *os.File
	br   *bufio.Reader
	dec  opus.Decoder
	info audio.StreamInfo
	pcm  []byte

	packets [][]byte
	partial []byte
	// position is the sample offset of the next frame.
	position int64
	done     bool
}

func (s *opusStream) Info() audio.StreamInfo { return s.info }

func (s *opusStream) Next(ctx context.Context) (audio.Frame, bool, error) {
	if s.done {
		return audio.Frame{}, false, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return audio.Frame{}, false, err
		}

		if len(s.packets) > 0 {
			pkt := s.packets[0]
			s.packets = s.packets[1:]
			if isOpusHeaderPacket(pkt) {
				continue
			}
			if _, _, err := s.dec.Decode(pkt, s.pcm); err != nil {
				s.done = true
				return audio.Frame{}, false, fmt.Errorf("native: opus decode: %w", err)
			}
			samples := make([]int16, opusFrameSamples)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(s.pcm[2*i:]))
			}
			frame := audio.Frame{
				Samples:  samples,
				Rate:     opusDecodeRate,
				Channels: 1,
				TS:       float64(s.position) / float64(opusDecodeRate),
				HasTS:    true,
			}
			s.position += opusFrameSamples
			return frame, true, nil
		}

		page, err := readOggPage(s.br)
		if err == io.EOF {
			s.done = true
			return audio.Frame{}, false, nil
		}
		if err != nil {
			s.done = true
			return audio.Frame{}, false, err
		}

		packets := page.packets
		if page.continued && len(s.partial) > 0 {
			if len(packets) == 0 {
				s.partial = append(s.partial, page.partial...)
				continue
			}
			packets[0] = append(s.partial, packets[0]...)
			s.partial = page.partial
		} else {
			s.partial = page.partial
		}
		s.packets = packets
	}
}

func (s *opusStream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// oggPage is one parsed Ogg page. Packets whose final lacing value is
// 255 continue on the next page and land in partial.
type oggPage struct {
	continued bool
	packets   [][]byte
	partial   []byte
}

// readOggPage parses the next page off the reader. A truncated final
// page reads as EOF; a recording cut off mid-page still yields
// everything before the cut.
func readOggPage(r io.Reader) (*oggPage, error) {
	var header [27]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	if !bytes.Equal(header[0:4], []byte("OggS")) {
		return nil, fmt.Errorf("native: ogg page sync lost: %w", audio.ErrUnreadableContainer)
	}

	nseg := int(header[26])
	table := make([]byte, nseg)
	if _, err := io.ReadFull(r, table); err != nil {
		return nil, io.EOF
	}

	var total int
	for _, l := range table {
		total += int(l)
	}
	payload := make([]byte, total)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, io.EOF
	}

	page := &oggPage{continued: header[5]&0x01 != 0}
	var offset int
	var cur []byte
	for _, l := range table {
		cur = append(cur, payload[offset:offset+int(l)]...)
		offset += int(l)
		if l < 255 {
			page.packets = append(page.packets, cur)
			cur = nil
		}
	}
	page.partial = cur
	return page, nil
}

func isOpusHeaderPacket(p []byte) bool {
	if len(p) < 8 {
		return false
	}
	return bytes.Equal(p[0:8], []byte("OpusHead")) || bytes.Equal(p[0:8], []byte("OpusTags"))
}
