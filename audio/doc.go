// Package audio provides the decoding, resampling, and segmentation
// layer that turns an arbitrary recording into canonical PCM segments.
//
// Canonical format is mono, 16 kHz, signed 16-bit linear PCM. Decoders
// produce raw frames at native rate and layout; the stateful Resampler
// converts them without losing samples at frame boundaries; the Chunker
// plans bounded time ranges and materializes one WAV segment per range
// in a single decode pass.
//
// # Decoders
//
//   - audio/ffmpeg: ffprobe/ffmpeg subprocess decoder (any container)
//   - audio/native: pure-Go decoder (WAV, Ogg Vorbis, Ogg Opus)
//
// # Usage
//
//	dec := ffmpeg.New(ffmpeg.Config{}, log)
//	info, err := dec.Probe(ctx, path)
//	ch := audio.NewChunker(dec, log)
//	ranges := ch.Plan(info.Duration, audio.DefaultMaxSegmentSeconds)
//	segments, err := ch.Materialize(ctx, path, ranges, dest)
package audio
