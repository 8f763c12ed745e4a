package transcription

import "github.com/skillsenselab/voicenotes/provider"

// NewRegistry creates a new provider registry for transcription backends.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
