// Package notes derives structured meeting notes from a transcript.
//
// The analysis is heuristic text scoring, not NLP: sentences are ranked
// by keyword hits and length, interrogatives become open questions, and
// a fixed pattern list picks out action items. It is deliberately cheap
// enough to run inline after every transcription.
package notes
