// Package protocol defines the JSON messages exchanged with the bidirectional
// speech model: the setup payload sent on connect, realtime audio input, and
// the loosely-typed server messages decoded into a tagged event list.
package protocol
