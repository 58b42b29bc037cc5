// Package metrics defines the Prometheus metrics exported by the interview
// service: live session lifecycle, audio pipeline throughput, transcript
// turns, analysis calls and the HTTP API.
package metrics
