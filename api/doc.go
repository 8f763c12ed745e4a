// Package api exposes the transcription pipeline over HTTP.
//
// One route does the work: POST /v1/transcriptions accepts a multipart
// upload (file, language, max_segment_seconds, notes, export, title) and
// responds synchronously with the merged transcript, the detected language,
// any failed time ranges, and, when requested, the notes digest and an
// export receipt. Domain failures map onto stable error codes: an input the
// decoders cannot read is a 422, a run where every segment failed is a 502,
// bad form fields are a 400.
package api
