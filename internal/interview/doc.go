// Package interview derives the live session configuration from settings:
// the interviewer voice and the system instruction.
package interview
