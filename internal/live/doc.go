// Package live runs one real-time voice interview: it streams captured
// microphone audio to the speech model, schedules synthesized audio for
// playback, and assembles transcription fragments into speaker turns.
//
// A Controller moves through IDLE, CONNECTING and ACTIVE to either ENDED
// (the user concluded) or FAILED (microphone or transport error). Only one
// controller may hold the microphone per process. The UI observes it through
// Snapshot and the Events feed and never mutates it directly.
package live
