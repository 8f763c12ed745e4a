package audio

import "errors"

// Sentinel errors for the fatal decode taxonomy. Callers match with
// errors.Is after unwrapping.
var (
	// ErrUnreadableContainer means the input could not be opened or parsed
	// as a media container.
	ErrUnreadableContainer = errors.New("audio: unreadable container")

	// ErrNoAudioStream means the container was parsed but holds no audio
	// track.
	ErrNoAudioStream = errors.New("audio: no audio stream")

	// ErrUnsupportedLayout means the input channel layout cannot be
	// reduced to mono.
	ErrUnsupportedLayout = errors.New("audio: unsupported channel layout")

	// ErrNoFramesProcessed means decoding produced zero usable frames.
	ErrNoFramesProcessed = errors.New("audio: no frames processed")
)
