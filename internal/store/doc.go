// Package store owns the durable session list and the interview settings.
// State is loaded once by Init and written back to a key-value backend after
// every mutation. Backends are SQLite and in-memory.
package store
