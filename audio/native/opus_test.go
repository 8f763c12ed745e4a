package native

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/skillsenselab/voicenotes/audio"
)

func TestReadOggPageTwoPackets(t *testing.T) {
	p1 := []byte("first-packet")
	p2 := []byte("second")
	data := makeOggPage(t, 0, [][]byte{p1, p2}, nil)

	page, err := readOggPage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readOggPage: %v", err)
	}
	if page.continued {
		t.Error("page should not be marked continued")
	}
	if len(page.packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(page.packets))
	}
	if !bytes.Equal(page.packets[0], p1) || !bytes.Equal(page.packets[1], p2) {
		t.Errorf("packets = %q, %q", page.packets[0], page.packets[1])
	}
	if len(page.partial) != 0 {
		t.Errorf("unexpected partial of %d bytes", len(page.partial))
	}
}

func TestReadOggPageLongPacketLacing(t *testing.T) {
	// 300 bytes laces as 255 + 45.
	long := bytes.Repeat([]byte{0xAB}, 300)
	data := makeOggPage(t, 0, [][]byte{long}, nil)

	page, err := readOggPage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readOggPage: %v", err)
	}
	if len(page.packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(page.packets))
	}
	if !bytes.Equal(page.packets[0], long) {
		t.Errorf("packet length = %d, want 300", len(page.packets[0]))
	}
}

func TestReadOggPageExactMultipleLacing(t *testing.T) {
	// 255 bytes laces as 255 + 0; the zero terminates the packet.
	exact := bytes.Repeat([]byte{0xCD}, 255)
	data := makeOggPage(t, 0, [][]byte{exact}, nil)

	page, err := readOggPage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readOggPage: %v", err)
	}
	if len(page.packets) != 1 || len(page.packets[0]) != 255 {
		t.Fatalf("packets = %d with first len %d, want 1 of 255", len(page.packets), len(page.packets[0]))
	}
	if len(page.partial) != 0 {
		t.Errorf("unexpected partial of %d bytes", len(page.partial))
	}
}

func TestReadOggPageUnterminatedPacket(t *testing.T) {
	head := []byte("whole")
	partial := bytes.Repeat([]byte{0xEF}, 510)
	data := makeOggPage(t, 0, [][]byte{head}, partial)

	page, err := readOggPage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readOggPage: %v", err)
	}
	if len(page.packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(page.packets))
	}
	if !bytes.Equal(page.partial, partial) {
		t.Errorf("partial length = %d, want 510", len(page.partial))
	}
}

func TestReadOggPageContinuedFlag(t *testing.T) {
	data := makeOggPage(t, 0x01, [][]byte{[]byte("tail-of-previous")}, nil)

	page, err := readOggPage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readOggPage: %v", err)
	}
	if !page.continued {
		t.Error("continuation flag not detected")
	}
}

func TestReadOggPageEOF(t *testing.T) {
	if _, err := readOggPage(bytes.NewReader(nil)); err != io.EOF {
		t.Fatalf("expected io.EOF on empty input, got %v", err)
	}
}

func TestReadOggPageTruncatedReadsAsEOF(t *testing.T) {
	data := makeOggPage(t, 0, [][]byte{bytes.Repeat([]byte{0x11}, 100)}, nil)
	// Cut the page off partway through the payload.
	if _, err := readOggPage(bytes.NewReader(data[:len(data)-40])); err != io.EOF {
		t.Fatalf("expected io.EOF for truncated page, got %v", err)
	}
}

func TestReadOggPageLostSync(t *testing.T) {
	data := makeOggPage(t, 0, [][]byte{[]byte("ok")}, nil)
	copy(data[0:4], "XXXX")

	_, err := readOggPage(bytes.NewReader(data))
	if !errors.Is(err, audio.ErrUnreadableContainer) {
		t.Fatalf("expected ErrUnreadableContainer, got %v", err)
	}
}

func TestReadOggPageSequence(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(makeOggPage(t, 0x02, [][]byte{[]byte("OpusHead\x01")}, nil))
	stream.Write(makeOggPage(t, 0, [][]byte{[]byte("OpusTags\x00"), []byte("audio-1")}, nil))
	stream.Write(makeOggPage(t, 0, [][]byte{[]byte("audio-2")}, nil))

	r := bytes.NewReader(stream.Bytes())
	var packets [][]byte
	for {
		page, err := readOggPage(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("readOggPage: %v", err)
		}
		packets = append(packets, page.packets...)
	}

	want := []string{"OpusHead\x01", "OpusTags\x00", "audio-1", "audio-2"}
	if len(packets) != len(want) {
		t.Fatalf("got %d packets, want %d", len(packets), len(want))
	}
	for i, w := range want {
		if string(packets[i]) != w {
			t.Errorf("packet %d = %q, want %q", i, packets[i], w)
		}
	}
}

func TestIsOpusHeaderPacket(t *testing.T) {
	tests := []struct {
		in   []byte
		want bool
	}{
		{[]byte("OpusHead\x01\x02"), true},
		{[]byte("OpusTags\x00"), true},
		{[]byte("OpusHea"), false},
		{[]byte("audio frame data"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isOpusHeaderPacket(tt.in); got != tt.want {
			t.Errorf("isOpusHeaderPacket(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
