// Package transcription defines the recognizer interface and common
// types for speech-to-text backends.
//
// Backends plug into a provider registry, so the pipeline selects one
// by name at runtime.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/openai: OpenAI hosted transcription API
//
// # Usage
//
//	reg := transcription.NewRegistry()
//	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())
//	p, err := reg.Create(whisper.ProviderName, cfg)
//	result, err := p.Transcribe(ctx, req)
package transcription
