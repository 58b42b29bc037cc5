// Package recording stores session audio as WAV files named by the blake3
// hash of their content and maps them to the URLs stored on sessions.
package recording
