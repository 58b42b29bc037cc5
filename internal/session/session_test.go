package session

import (
	"testing"
	"time"

	"github.com/skypro1111/interview-service/internal/transcript"
)

func sampleSession() *Session {
	return New(TypeAIInterview, 90*time.Second, &AnalysisResult{
		Summary: "summary",
		Transcript: []transcript.Turn{
			{Speaker: transcript.SpeakerAI, Text: "Hello there", StartTime: 0},
			{Speaker: transcript.SpeakerInterviewee, Text: "Héllo", StartTime: 2},
		},
	})
}

func TestNew(t *testing.T) {
	s := sampleSession()

	if s.ID == "" {
		t.Error("Expected non-empty id")
	}
	if s.Duration != 90 {
		t.Errorf("Expected duration 90, got %f", s.Duration)
	}
	if s.Codes == nil || s.Annotations == nil {
		t.Error("Expected empty, non-nil code and annotation lists")
	}

	other := sampleSession()
	if other.ID == s.ID {
		t.Error("Expected distinct ids")
	}
}

func TestNewDegraded(t *testing.T) {
	turns := []transcript.Turn{{Speaker: transcript.SpeakerAI, Text: "Hi"}}
	s := NewDegraded(TypeAIInterview, time.Second, turns)

	if !s.Degraded {
		t.Error("Expected degraded flag")
	}
	if s.Analysis.Summary != "" {
		t.Errorf("Expected empty summary, got %q", s.Analysis.Summary)
	}
	if len(s.Turns()) != 1 {
		t.Errorf("Expected 1 turn, got %d", len(s.Turns()))
	}
}

func TestSegment(t *testing.T) {
	s := sampleSession()

	turn, err := s.Segment(1)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if turn.Text != "Héllo" {
		t.Errorf("Expected Héllo, got %q", turn.Text)
	}

	for _, index := range []int{-1, 2} {
		if _, err := s.Segment(index); err == nil {
			t.Errorf("Expected error for index %d", index)
		}
	}

	empty := New(TypeUploaded, 0, nil)
	if _, err := empty.Segment(0); err == nil {
		t.Error("Expected error for session without analysis")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Session)
		wantErr bool
	}{
		{"valid", func(s *Session) {}, false},
		{"missing id", func(s *Session) { s.ID = "" }, true},
		{"bad type", func(s *Session) { s.Type = "LIVE" }, true},
		{"rune range ok", func(s *Session) {
			s.Annotations = []Annotation{{ID: "a", SegmentIndex: 1, StartOffset: 0, EndOffset: 5}}
		}, false},
		{"range past end", func(s *Session) {
			s.Annotations = []Annotation{{ID: "a", SegmentIndex: 1, StartOffset: 0, EndOffset: 6}}
		}, true},
		{"collapsed range", func(s *Session) {
			s.Annotations = []Annotation{{ID: "a", SegmentIndex: 0, StartOffset: 3, EndOffset: 3}}
		}, true},
		{"bad segment", func(s *Session) {
			s.Annotations = []Annotation{{ID: "a", SegmentIndex: 5, StartOffset: 0, EndOffset: 1}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSession()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClone(t *testing.T) {
	s := sampleSession()
	s.Codes = append(s.Codes, Code{ID: "c1", Name: "Theme", Color: "#ef4444"})

	c := s.Clone()
	c.Codes[0].Name = "Changed"
	c.Analysis.Transcript[0].Text = "Changed"

	if s.Codes[0].Name != "Theme" {
		t.Error("Expected clone codes to be independent")
	}
	if s.Analysis.Transcript[0].Text != "Hello there" {
		t.Error("Expected clone transcript to be independent")
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("Expected default settings to be valid, got %v", err)
	}

	tests := []Settings{
		{Language: "FR", VoiceGender: VoiceMale, InterviewMode: ModeBeginner},
		{Language: LanguageUS, VoiceGender: "OTHER", InterviewMode: ModeBeginner},
		{Language: LanguageUS, VoiceGender: VoiceMale, InterviewMode: "EXPERT"},
	}
	for _, s := range tests {
		if err := s.Validate(); err == nil {
			t.Errorf("Expected error for %+v", s)
		}
	}
}
