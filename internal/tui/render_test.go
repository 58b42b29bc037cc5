package tui

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/skypro1111/interview-service/internal/annotation"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func annotatedSession(t *testing.T) *session.Session {
	t.Helper()

	s := session.New(session.TypeAIInterview, 95*time.Second, &session.AnalysisResult{
		Summary:     "A story about the sea.",
		Takeaways:   []string{"Water is calming"},
		Modalities:  []string{"visual"},
		PhasesCount: 1,
		DiachronicStructure: []session.Phase{
			{PhaseName: "Opening", Description: "Setting the scene", StartTime: "00:00"},
		},
		SynchronicStructure: []session.Quality{{Category: "Emotion", Details: "Calm"}},
		Transcript: []transcript.Turn{
			{Speaker: transcript.SpeakerAI, Text: "Tell me about the sea.", StartTime: 0},
			{Speaker: transcript.SpeakerInterviewee, Text: "The sea is wide and calm", StartTime: 4},
		},
	})

	calm, err := annotation.CreateCode(s, "Calm", "")
	if err != nil {
		t.Fatalf("CreateCode failed: %v", err)
	}
	place, err := annotation.CreateCode(s, "Place", "")
	if err != nil {
		t.Fatalf("CreateCode failed: %v", err)
	}
	if _, err := annotation.ApplyCode(s, 1, 4, 24, place.ID); err != nil {
		t.Fatalf("ApplyCode failed: %v", err)
	}
	if _, err := annotation.ApplyCode(s, 1, 20, 24, calm.ID); err != nil {
		t.Fatalf("ApplyCode failed: %v", err)
	}
	return s
}

func TestRenderAnnotatedSegmentPreservesText(t *testing.T) {
	s := annotatedSession(t)

	for i, turn := range s.Turns() {
		rendered, err := RenderAnnotatedSegment(s, i)
		if err != nil {
			t.Fatalf("RenderAnnotatedSegment failed: %v", err)
		}
		if got := stripANSI(rendered); got != turn.Text {
			t.Errorf("Expected %q, got %q", turn.Text, got)
		}
	}

	if _, err := RenderAnnotatedSegment(s, 5); err == nil {
		t.Error("Expected error for missing segment")
	}
}

func TestRenderSession(t *testing.T) {
	s := annotatedSession(t)

	out := stripANSI(RenderSession(s, 80))
	for _, want := range []string{
		"SESSION " + s.ID,
		"A story about the sea.",
		"• Water is calming",
		"[00:00] Opening",
		"Emotion",
		"Calm (1)",
		"Place (1)",
		"[00:04] Interviewee: The sea is wide and calm",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderDegradedSession(t *testing.T) {
	s := session.NewDegraded(session.TypeUploaded, 0, transcript.FromRawText("just text"))

	out := stripANSI(RenderSession(s, 80))
	if !strings.Contains(out, "[analysis unavailable]") {
		t.Errorf("Expected degraded badge, got:\n%s", out)
	}
	if strings.Contains(out, "SUMMARY") {
		t.Errorf("Expected no summary for degraded session, got:\n%s", out)
	}
	if !strings.Contains(out, "just text") {
		t.Errorf("Expected transcript, got:\n%s", out)
	}
}
