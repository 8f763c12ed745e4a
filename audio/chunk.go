package audio

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/skillsenselab/voicenotes/logger"
)

// DestFunc maps a segment sequence index to the file path it should be
// written to.
type DestFunc func(index int) (string, error)

// Chunker partitions the recording timeline into bounded ranges and
// materializes one canonical segment per range.
type Chunker struct {
	dec Decoder
	log *logger.Logger
}

// NewChunker creates a chunker that decodes through dec.
func NewChunker(dec Decoder, log *logger.Logger) *Chunker {
	return &Chunker{
		dec: dec,
		log: log.WithComponent("chunker"),
	}
}

// Plan partitions [0, totalSeconds) into contiguous ranges of at most
// maxSegmentSeconds each. When the total fits one segment, or is
// unknown (zero), the plan is a single range; an unknown total yields
// an unbounded one. A non-positive maxSegmentSeconds falls back to
// DefaultMaxSegmentSeconds.
func (c *Chunker) Plan(totalSeconds, maxSegmentSeconds float64) []Range {
	if maxSegmentSeconds <= 0 {
		maxSegmentSeconds = DefaultMaxSegmentSeconds
	}
	if totalSeconds <= 0 {
		return []Range{{Start: 0, Unbounded: true}}
	}
	if totalSeconds <= maxSegmentSeconds {
		return []Range{{Start: 0, End: totalSeconds}}
	}

	n := int(math.Ceil(totalSeconds / maxSegmentSeconds))
	ranges := make([]Range, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * maxSegmentSeconds
		end := start + maxSegmentSeconds
		if end > totalSeconds {
			end = totalSeconds
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// Materialize decodes the input once and slices the canonical frame
// stream into one WAV segment per planned range. Frames are assigned
// to the range containing their timestamp; a frame exactly at a range
// end belongs to the next range, and frames without a timestamp go to
// the currently active range in decode order.
//
// If the pass produces no segments at all, the whole stream is retried
// as a single segment before giving up; a recording should degrade to
// one big segment rather than be lost.
func (c *Chunker) Materialize(ctx context.Context, path string, ranges []Range, dest DestFunc) ([]CanonicalSegment, error) {
	segments, err := c.materializePass(ctx, path, ranges, dest)
	if err != nil {
		return nil, err
	}
	if len(segments) > 0 {
		return segments, nil
	}

	c.log.Warn("plan produced no segments, retrying whole stream as one segment", map[string]interface{}{
		"path":   path,
		"ranges": len(ranges),
	})
	segments, err = c.materializePass(ctx, path, []Range{{Start: 0, Unbounded: true}}, dest)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("audio: chunker: %w", ErrNoFramesProcessed)
	}
	return segments, nil
}

func (c *Chunker) materializePass(ctx context.Context, path string, ranges []Range, dest DestFunc) ([]CanonicalSegment, error) {
	stream, err := c.dec.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info()
	rs, err := NewResampler(info.SampleRate, info.Channels)
	if err != nil {
		return nil, err
	}

	writers := make([]*SegmentWriter, len(ranges))
	active := 0

	write := func(cf Frame) error {
		if len(cf.Samples) == 0 {
			return nil
		}
		if cf.HasTS {
			for active+1 < len(ranges) && !ranges[active].Unbounded && cf.TS >= ranges[active].End {
				active++
			}
		}
		if writers[active] == nil {
			segPath, err := dest(active)
			if err != nil {
				return fmt.Errorf("audio: chunker: segment %d destination: %w", active, err)
			}
			w, err := NewSegmentWriter(segPath, active, ranges[active])
			if err != nil {
				return err
			}
			writers[active] = w
		}
		return writers[active].WriteFrame(cf)
	}

	cleanup := func() {
		for _, w := range writers {
			if w != nil && !w.closed {
				w.Close()
			}
		}
	}

	for {
		raw, ok, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				cleanup()
				return nil, err
			}
			// A decode failure mid-stream keeps whatever was already
			// materialized instead of losing the recording.
			c.log.Warn("decode stopped mid-stream", logger.ErrorFields("decode", err))
			break
		}
		if !ok {
			break
		}
		cf, emitted, err := rs.Convert(raw)
		if err != nil {
			cleanup()
			return nil, err
		}
		if emitted {
			if err := write(cf); err != nil {
				cleanup()
				return nil, err
			}
		}
	}

	if cf, ok := rs.Flush(); ok {
		if err := write(cf); err != nil {
			cleanup()
			return nil, err
		}
	}

	var segments []CanonicalSegment
	for _, w := range writers {
		if w == nil {
			continue
		}
		seg, err := w.Close()
		if err != nil {
			if errors.Is(err, ErrNoFramesProcessed) {
				continue
			}
			cleanup()
			return nil, err
		}
		segments = append(segments, *seg)
	}

	c.log.Debug("materialized segments", map[string]interface{}{
		"planned":  len(ranges),
		"produced": len(segments),
		"samples":  rs.Emitted(),
	})
	return segments, nil
}
