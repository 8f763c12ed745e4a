package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/skillsenselab/voicenotes/logger"
)

// fakeStream yields a scripted frame sequence.
type fakeStream struct {
	info   StreamInfo
	frames []Frame
	// failAt makes Next return an error instead of the frame at that
	// position; -1 disables it.
	failAt int
	pos    int
}

func (s *fakeStream) Info() StreamInfo { return s.info }

func (s *fakeStream) Next(ctx context.Context) (Frame, bool, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, false, err
	}
	if s.failAt >= 0 && s.pos == s.failAt {
		return Frame{}, false, errors.New("simulated decode failure")
	}
	if s.pos >= len(s.frames) {
		return Frame{}, false, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return f, true, nil
}

func (s *fakeStream) Close() error { return nil }

// fakeDecoder hands out one scripted stream per Open call.
type fakeDecoder struct {
	streams []*fakeStream
	opens   int
}

func (d *fakeDecoder) Name() string { return "fake" }

func (d *fakeDecoder) IsAvailable(ctx context.Context) bool { return true }

func (d *fakeDecoder) Probe(ctx context.Context, path string) (StreamInfo, error) {
	if len(d.streams) == 0 {
		return StreamInfo{}, ErrUnreadableContainer
	}
	return d.streams[0].info, nil
}

func (d *fakeDecoder) Open(ctx context.Context, path string) (Stream, error) {
	if d.opens >= len(d.streams) {
		return nil, fmt.Errorf("open %d: %w", d.opens, ErrUnreadableContainer)
	}
	s := d.streams[d.opens]
	d.opens++
	return s, nil
}

// secondFrames builds n one-second canonical-rate mono frames with
// consecutive timestamps starting at 0.
func secondFrames(n int, withTS bool) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		samples := make([]int16, CanonicalSampleRate)
		for j := range samples {
			samples[j] = int16(100 * (i + 1))
		}
		frames[i] = Frame{
			Samples:  samples,
			Rate:     CanonicalSampleRate,
			Channels: 1,
			TS:       float64(i),
			HasTS:    withTS,
		}
	}
	return frames
}

func monoInfo(duration float64) StreamInfo {
	return StreamInfo{
		Codec:      "pcm_s16le",
		SampleRate: CanonicalSampleRate,
		Channels:   1,
		Duration:   duration,
		TimeBase:   Rational{1, CanonicalSampleRate},
	}
}

func testChunker(dec Decoder) *Chunker {
	return NewChunker(dec, logger.NewDefault("test"))
}

func tempDest(t *testing.T) DestFunc {
	t.Helper()
	dir := t.TempDir()
	return func(index int) (string, error) {
		return filepath.Join(dir, fmt.Sprintf("segment_%04d.wav", index)), nil
	}
}

func TestPlanShortRecordingSingleRange(t *testing.T) {
	c := testChunker(nil)
	ranges := c.Plan(300, 1200) // five minutes
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	if ranges[0].Start != 0 || ranges[0].End != 300 || ranges[0].Unbounded {
		t.Errorf("range = %+v, want [0,300)", ranges[0])
	}
}

func TestPlanFortyFiveMinutes(t *testing.T) {
	c := testChunker(nil)
	ranges := c.Plan(2700, 1200)
	want := []Range{
		{Start: 0, End: 1200},
		{Start: 1200, End: 2400},
		{Start: 2400, End: 2700},
	}
	if len(ranges) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(ranges), len(want))
	}
	for i := range want {
		if ranges[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, ranges[i], want[i])
		}
	}
}

func TestPlanUnknownDuration(t *testing.T) {
	c := testChunker(nil)
	ranges := c.Plan(0, 1200)
	if len(ranges) != 1 || !ranges[0].Unbounded || ranges[0].Start != 0 {
		t.Fatalf("ranges = %+v, want one unbounded range from 0", ranges)
	}
}

func TestPlanDefaultMaxSegment(t *testing.T) {
	c := testChunker(nil)
	ranges := c.Plan(2700, 0)
	if len(ranges) != 3 {
		t.Fatalf("got %d ranges with default max, want 3", len(ranges))
	}
}

func TestPlanCoversTimelineExactly(t *testing.T) {
	c := testChunker(nil)
	for _, total := range []float64{1201, 2400, 3599.5, 7200, 12345.678} {
		ranges := c.Plan(total, 1200)
		if ranges[0].Start != 0 {
			t.Errorf("total %v: first range starts at %v", total, ranges[0].Start)
		}
		for i := 1; i < len(ranges); i++ {
			if ranges[i].Start != ranges[i-1].End {
				t.Errorf("total %v: gap or overlap between range %d and %d: %v vs %v",
					total, i-1, i, ranges[i-1].End, ranges[i].Start)
			}
			if ranges[i].End <= ranges[i].Start {
				t.Errorf("total %v: range %d not strictly increasing: %+v", total, i, ranges[i])
			}
		}
		if last := ranges[len(ranges)-1]; last.End != total {
			t.Errorf("total %v: last range ends at %v", total, last.End)
		}
	}
}

func TestMaterializeAssignsFramesByTimestamp(t *testing.T) {
	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(4), frames: secondFrames(4, true), failAt: -1},
	}}
	c := testChunker(dec)

	ranges := []Range{{Start: 0, End: 2}, {Start: 2, End: 4}}
	segments, err := c.Materialize(context.Background(), "in.wav", ranges, tempDest(t))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}

	// The frame stamped exactly 2.0 belongs to the second range.
	var total int64
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if diff := seg.Samples - 2*CanonicalSampleRate; diff < -2 || diff > 2 {
			t.Errorf("segment %d has %d samples, want ~%d", i, seg.Samples, 2*CanonicalSampleRate)
		}
		total += seg.Samples
	}
	if total != 4*CanonicalSampleRate {
		t.Errorf("total samples = %d, want %d", total, 4*CanonicalSampleRate)
	}
	if segments[0].Start != 0 || segments[0].End != 2 || segments[1].Start != 2 || segments[1].End != 4 {
		t.Errorf("segment bounds = %+v", segments)
	}
}

func TestMaterializeFramesWithoutTimestampsStayInActiveRange(t *testing.T) {
	frames := secondFrames(4, true)
	frames[1].HasTS = false // belongs to whatever range frame 0 opened
	frames[3].HasTS = false // belongs to the range frame 2 advanced to

	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(4), frames: frames, failAt: -1},
	}}
	c := testChunker(dec)

	ranges := []Range{{Start: 0, End: 2}, {Start: 2, End: 4}}
	segments, err := c.Materialize(context.Background(), "in.wav", ranges, tempDest(t))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	for i, seg := range segments {
		if diff := seg.Samples - 2*CanonicalSampleRate; diff < -2 || diff > 2 {
			t.Errorf("segment %d has %d samples, want ~%d", i, seg.Samples, 2*CanonicalSampleRate)
		}
	}
}

func TestMaterializeWholeStreamWhenNoTimestampsAtAll(t *testing.T) {
	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(0), frames: secondFrames(3, false), failAt: -1},
	}}
	c := testChunker(dec)

	segments, err := c.Materialize(context.Background(), "in.wav",
		[]Range{{Start: 0, Unbounded: true}}, tempDest(t))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Samples != 3*CanonicalSampleRate {
		t.Errorf("samples = %d, want %d", segments[0].Samples, 3*CanonicalSampleRate)
	}
	if segments[0].End != 3 {
		t.Errorf("unbounded segment end = %v, want 3", segments[0].End)
	}
}

func TestMaterializeFallsBackAfterImmediateDecodeFailure(t *testing.T) {
	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(4), frames: secondFrames(4, true), failAt: 0},
		{info: monoInfo(4), frames: secondFrames(4, true), failAt: -1},
	}}
	c := testChunker(dec)

	ranges := []Range{{Start: 0, End: 2}, {Start: 2, End: 4}}
	segments, err := c.Materialize(context.Background(), "in.wav", ranges, tempDest(t))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if dec.opens != 2 {
		t.Errorf("expected a second decode pass, opens = %d", dec.opens)
	}
	if len(segments) != 1 {
		t.Fatalf("fallback should produce one whole-stream segment, got %d", len(segments))
	}
	if segments[0].Samples != 4*CanonicalSampleRate {
		t.Errorf("fallback samples = %d, want %d", segments[0].Samples, 4*CanonicalSampleRate)
	}
}

func TestMaterializeKeepsPartialSegmentsOnMidStreamFailure(t *testing.T) {
	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(4), frames: secondFrames(4, true), failAt: 3},
	}}
	c := testChunker(dec)

	ranges := []Range{{Start: 0, End: 2}, {Start: 2, End: 4}}
	segments, err := c.Materialize(context.Background(), "in.wav", ranges, tempDest(t))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2 (second truncated)", len(segments))
	}
	if segments[1].Samples >= 2*CanonicalSampleRate {
		t.Errorf("truncated segment has %d samples, expected fewer than %d",
			segments[1].Samples, 2*CanonicalSampleRate)
	}
}

func TestMaterializeEmptyStreamFails(t *testing.T) {
	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(0), failAt: -1},
		{info: monoInfo(0), failAt: -1},
	}}
	c := testChunker(dec)

	_, err := c.Materialize(context.Background(), "in.wav",
		[]Range{{Start: 0, Unbounded: true}}, tempDest(t))
	if !errors.Is(err, ErrNoFramesProcessed) {
		t.Fatalf("expected ErrNoFramesProcessed, got %v", err)
	}
}

func TestMaterializeHonorsCancellation(t *testing.T) {
	dec := &fakeDecoder{streams: []*fakeStream{
		{info: monoInfo(4), frames: secondFrames(4, true), failAt: -1},
	}}
	c := testChunker(dec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Materialize(ctx, "in.wav", []Range{{Start: 0, Unbounded: true}}, tempDest(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMaterializeUnsupportedLayout(t *testing.T) {
	info := monoInfo(4)
	info.Channels = 0
	dec := &fakeDecoder{streams: []*fakeStream{{info: info, failAt: -1}}}
	c := testChunker(dec)

	_, err := c.Materialize(context.Background(), "in.wav",
		[]Range{{Start: 0, Unbounded: true}}, tempDest(t))
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("expected ErrUnsupportedLayout, got %v", err)
	}
}
