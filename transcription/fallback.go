package transcription

import (
	"context"
	"fmt"

	"github.com/skillsenselab/voicenotes/provider"
)

// Fallback is a Provider that defers backend choice to call time: each
// Transcribe picks the first available provider in priority order, so a
// sidecar that comes up or goes down between runs is handled without a
// restart.
type Fallback struct {
	registry *provider.Registry[Provider]
	selector provider.PrioritySelector[Provider]
}

// NewFallback builds a fallback recognizer over the registry's cached
// instances.
func NewFallback(registry *provider.Registry[Provider], priority []string) *Fallback {
	return &Fallback{
		registry: registry,
		selector: provider.PrioritySelector[Provider]{Priority: priority},
	}
}

// Name identifies the composite recognizer.
func (f *Fallback) Name() string { return "fallback" }

// IsAvailable reports whether any backend in the priority list is.
func (f *Fallback) IsAvailable(ctx context.Context) bool {
	_, err := f.selector.Select(ctx, f.registry.Instances())
	return err == nil
}

// Transcribe delegates to the first available backend.
func (f *Fallback) Transcribe(ctx context.Context, req Request) (*Result, error) {
	p, err := f.selector.Select(ctx, f.registry.Instances())
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	return p.Transcribe(ctx, req)
}
