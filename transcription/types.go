package transcription

// Request holds parameters for one transcription call.
type Request struct {
	// AudioPath is the path to the audio file to transcribe.
	AudioPath string `json:"audio_path"`
	// Language is the expected language of the audio (e.g. "en").
	// Empty leaves detection to the backend.
	Language string `json:"language,omitempty"`
	// Model overrides the backend's configured model.
	Model string `json:"model,omitempty"`
}

// Result holds the outcome of a transcription call.
type Result struct {
	// Text is the full transcript text.
	Text string `json:"text"`
	// Pieces contains time-aligned transcript pieces, when the backend
	// reports them.
	Pieces []Piece `json:"pieces,omitempty"`
	// Duration is the recognized audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Piece is a time-aligned portion of a transcript.
type Piece struct {
	// Start is the piece start time in seconds.
	Start float64 `json:"start"`
	// End is the piece end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this piece.
	Text string `json:"text"`
}
