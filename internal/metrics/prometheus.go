package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the interview service
type Metrics struct {
	// Live session metrics
	LiveSessionsStarted prometheus.Counter
	LiveSessionsEnded   prometheus.Counter
	LiveSessionsFailed  *prometheus.CounterVec
	ActiveLiveSessions  prometheus.Gauge
	LiveSessionDuration prometheus.Histogram

	// Audio pipeline metrics
	FramesSent      prometheus.Counter
	SendErrors      prometheus.Counter
	SendQueueDepth  prometheus.Gauge
	AudioReceived   prometheus.Counter
	MalformedAudio  prometheus.Counter
	PlaybackSeconds prometheus.Counter
	Interruptions   prometheus.Counter
	InputLevel      prometheus.Gauge

	// Transcript metrics
	MessagesReceived prometheus.Counter
	TurnsFinalized   *prometheus.CounterVec

	// Analysis metrics
	AnalysisRequests  prometheus.Counter
	AnalysisSuccesses prometheus.Counter
	AnalysisFailures  prometheus.Counter
	AnalysisDuration  prometheus.Histogram

	// Store metrics
	SessionsStored prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics with reg
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Live session metrics
		LiveSessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_live_sessions_started_total",
			Help: "Total number of live interview sessions started",
		}),
		LiveSessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_live_sessions_ended_total",
			Help: "Total number of live interview sessions concluded by the user",
		}),
		LiveSessionsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_live_sessions_failed_total",
			Help: "Total number of live interview sessions that failed",
		}, []string{"reason"}),
		ActiveLiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_live_sessions_active",
			Help: "Current number of live interview sessions",
		}),
		LiveSessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_live_session_duration_seconds",
			Help:    "Duration of live interview sessions",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),

		// Audio pipeline metrics
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_audio_frames_sent_total",
			Help: "Total number of captured audio frames sent to the model",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_audio_send_errors_total",
			Help: "Total number of audio frames that failed to send",
		}),
		SendQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_audio_send_queue_depth",
			Help: "Current number of audio frames waiting to be sent",
		}),
		AudioReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_audio_packets_received_total",
			Help: "Total number of synthesized audio packets received",
		}),
		MalformedAudio: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_audio_malformed_total",
			Help: "Total number of inbound audio packets dropped as malformed",
		}),
		PlaybackSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_audio_playback_seconds_total",
			Help: "Total seconds of synthesized audio scheduled for playback",
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_interruptions_total",
			Help: "Total number of playback interruptions (barge-in)",
		}),
		InputLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_input_level_dbfs",
			Help: "Most recent microphone input level in dBFS",
		}),

		// Transcript metrics
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_messages_received_total",
			Help: "Total number of messages received from the live model",
		}),
		TurnsFinalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_turns_finalized_total",
			Help: "Total number of finalized transcript turns",
		}, []string{"speaker"}),

		// Analysis metrics
		AnalysisRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_analysis_requests_total",
			Help: "Total number of transcript analysis requests",
		}),
		AnalysisSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_analysis_successes_total",
			Help: "Total number of successful transcript analyses",
		}),
		AnalysisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_analysis_failures_total",
			Help: "Total number of failed transcript analyses",
		}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_analysis_duration_seconds",
			Help:    "Time taken for transcript analysis",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),

		// Store metrics
		SessionsStored: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_sessions_stored",
			Help: "Current number of stored sessions",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordLiveSessionStarted records a session entering CONNECTING
func (m *Metrics) RecordLiveSessionStarted() {
	m.LiveSessionsStarted.Inc()
	m.ActiveLiveSessions.Inc()
}

// RecordLiveSessionEnded records a concluded session
func (m *Metrics) RecordLiveSessionEnded(durationSeconds float64) {
	m.LiveSessionsEnded.Inc()
	m.ActiveLiveSessions.Dec()
	m.LiveSessionDuration.Observe(durationSeconds)
}

// RecordLiveSessionFailed records a failed session
func (m *Metrics) RecordLiveSessionFailed(reason string) {
	m.LiveSessionsFailed.WithLabelValues(reason).Inc()
	m.ActiveLiveSessions.Dec()
}

// RecordFrameSent records a frame written to the transport
func (m *Metrics) RecordFrameSent() {
	m.FramesSent.Inc()
}

// RecordSendError records a failed send
func (m *Metrics) RecordSendError() {
	m.SendErrors.Inc()
}

// SetSendQueueDepth updates the send queue depth
func (m *Metrics) SetSendQueueDepth(depth int) {
	m.SendQueueDepth.Set(float64(depth))
}

// RecordMessageReceived records one inbound message
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordAudioReceived records a decoded audio packet and its duration
func (m *Metrics) RecordAudioReceived(durationSeconds float64) {
	m.AudioReceived.Inc()
	m.PlaybackSeconds.Add(durationSeconds)
}

// RecordMalformedAudio records a dropped audio packet
func (m *Metrics) RecordMalformedAudio() {
	m.MalformedAudio.Inc()
}

// RecordInterruption records a playback interruption
func (m *Metrics) RecordInterruption() {
	m.Interruptions.Inc()
}

// SetInputLevel updates the microphone level gauge
func (m *Metrics) SetInputLevel(dbfs float64) {
	m.InputLevel.Set(dbfs)
}

// RecordTurnFinalized records a finalized turn by speaker
func (m *Metrics) RecordTurnFinalized(speaker string) {
	m.TurnsFinalized.WithLabelValues(speaker).Inc()
}

// RecordAnalysisRequest records an analysis request
func (m *Metrics) RecordAnalysisRequest() {
	m.AnalysisRequests.Inc()
}

// RecordAnalysisSuccess records a successful analysis
func (m *Metrics) RecordAnalysisSuccess(durationSeconds float64) {
	m.AnalysisSuccesses.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
}

// RecordAnalysisFailure records a failed analysis
func (m *Metrics) RecordAnalysisFailure(durationSeconds float64) {
	m.AnalysisFailures.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
}

// SetSessionsStored updates the stored session count
func (m *Metrics) SetSessionsStored(count int) {
	m.SessionsStored.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
