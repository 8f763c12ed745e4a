package transcription

import (
	"context"

	"github.com/skillsenselab/voicenotes/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Transcribe sends audio for transcription and returns the result.
	// The request's Language is a concrete tag or empty; backends never
	// see placeholder values like "auto".
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
