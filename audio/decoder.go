package audio

import "context"

// Decoder opens media containers and produces raw frame streams. Both
// probing and opening must inspect the container itself, never the
// filename extension.
type Decoder interface {
	// Name returns the decoder's unique name.
	Name() string

	// IsAvailable checks if the decoder is ready to handle input.
	IsAvailable(ctx context.Context) bool

	// Probe inspects the container and returns stream information for
	// the first audio stream. Returns ErrNoAudioStream if the container
	// has no audio track, ErrUnreadableContainer if it cannot be parsed.
	Probe(ctx context.Context, path string) (StreamInfo, error)

	// Open starts a decode pass over the first audio stream. The
	// returned stream is finite and not restartable; call Open again
	// for another pass.
	Open(ctx context.Context, path string) (Stream, error)
}

// Stream is a lazy sequence of decoded frames. Next returns the next
// frame and true, or a zero frame and false after the last one. Close
// releases the underlying resources and is safe to call more than once.
type Stream interface {
	Info() StreamInfo
	Next(ctx context.Context) (Frame, bool, error)
	Close() error
}
