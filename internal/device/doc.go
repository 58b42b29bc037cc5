// Package device drives the microphone and speaker through external PCM
// processes (arecord/aplay by default, any command that reads or writes
// raw signed 16-bit little-endian mono PCM works).
//
// The microphone streams the capture process's stdout. The speaker is the
// playback clock and sink for the output scheduler: it paces buffers into
// the playback process's stdin at their scheduled start times.
package device
