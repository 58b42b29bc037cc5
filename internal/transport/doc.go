// Package transport implements the persistent websocket connection to the
// bidirectional speech model.
package transport
