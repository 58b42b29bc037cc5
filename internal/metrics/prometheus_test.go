package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLiveSessionGauge(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordLiveSessionStarted()
	m.RecordLiveSessionStarted()
	m.RecordLiveSessionEnded(42)
	m.RecordLiveSessionFailed("transport")

	if got := testutil.ToFloat64(m.ActiveLiveSessions); got != 0 {
		t.Errorf("Expected 0 active sessions, got %f", got)
	}
	if got := testutil.ToFloat64(m.LiveSessionsStarted); got != 2 {
		t.Errorf("Expected 2 started sessions, got %f", got)
	}
	if got := testutil.ToFloat64(m.LiveSessionsFailed.WithLabelValues("transport")); got != 1 {
		t.Errorf("Expected 1 transport failure, got %f", got)
	}
}

func TestAudioCounters(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordAudioReceived(0.5)
	m.RecordAudioReceived(1.5)
	m.RecordMalformedAudio()
	m.RecordTurnFinalized("AI")

	if got := testutil.ToFloat64(m.PlaybackSeconds); got != 2 {
		t.Errorf("Expected 2 playback seconds, got %f", got)
	}
	if got := testutil.ToFloat64(m.AudioReceived); got != 2 {
		t.Errorf("Expected 2 audio packets, got %f", got)
	}
	if got := testutil.ToFloat64(m.TurnsFinalized.WithLabelValues("AI")); got != 1 {
		t.Errorf("Expected 1 AI turn, got %f", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Registering twice with independent registries must not panic.
	NewMetricsWith(prometheus.NewRegistry())
	NewMetricsWith(prometheus.NewRegistry())
}
