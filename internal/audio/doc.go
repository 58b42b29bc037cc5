// Package audio converts between float samples and the PCM-16 wire format,
// frames captured audio into fixed-size blocks, schedules gapless playback
// of model audio, and records session audio into WAV containers.
package audio
