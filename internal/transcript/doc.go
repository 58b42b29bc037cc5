// Package transcript assembles incremental transcription fragments into
// speaker-attributed, timestamped turns and renders finished transcripts
// for export and analysis.
package transcript
