// Package session defines the persisted data model: sessions with their
// analysis result, code taxonomy and annotations, and the process-wide
// interview settings.
package session
