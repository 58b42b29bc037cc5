// Package server implements the HTTP API over the session store: listing,
// export and import of sessions, code and annotation editing, settings,
// recorded audio, plus health, configuration and Prometheus endpoints.
package server
