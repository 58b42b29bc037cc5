// Package vad provides an energy-based voice activity meter for captured
// microphone frames. It reports a decaying input level and whether the
// participant is speaking, for the live interview display.
package vad
