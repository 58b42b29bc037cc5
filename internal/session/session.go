package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/interview-service/internal/transcript"
)

// Type identifies how a session's transcript was produced
type Type string

const (
	TypeAIInterview Type = "AI_INTERVIEW"
	TypeRecorded    Type = "RECORDED"
	TypeUploaded    Type = "UPLOADED"
)

// Valid reports whether t is a known session type
func (t Type) Valid() bool {
	switch t {
	case TypeAIInterview, TypeRecorded, TypeUploaded:
		return true
	}
	return false
}

// Session is one completed interview or imported transcript. It owns its
// codes and annotations.
type Session struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Duration    float64         `json:"duration"` // seconds
	Type        Type            `json:"type"`
	Analysis    *AnalysisResult `json:"analysis,omitempty"`
	Codes       []Code          `json:"codes"`
	Annotations []Annotation    `json:"annotations"`
	AudioURL    string          `json:"audioUrl,omitempty"`

	// Degraded marks a session whose analysis failed; only the transcript
	// is populated.
	Degraded bool `json:"degraded,omitempty"`
}

// AnalysisResult is the structured output of the analysis collaborator
type AnalysisResult struct {
	Summary             string            `json:"summary"`
	Takeaways           []string          `json:"takeaways"`
	Modalities          []string          `json:"modalities"`
	PhasesCount         int               `json:"phasesCount"`
	DiachronicStructure []Phase           `json:"diachronicStructure"`
	SynchronicStructure []Quality         `json:"synchronicStructure"`
	Transcript          []transcript.Turn `json:"transcript"`
}

// Phase is one chronological stage of the interview
type Phase struct {
	PhaseName   string `json:"phaseName"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
}

// Quality is one thematic category observed across the interview
type Quality struct {
	Category string `json:"category"`
	Details  string `json:"details"`
}

// Code is a user-defined label applied to transcript spans
type Code struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Annotation tags a character range of one transcript segment with a code.
// Offsets count characters (runes), end exclusive.
type Annotation struct {
	ID           string `json:"id"`
	CodeID       string `json:"codeId"`
	SegmentIndex int    `json:"segmentIndex"`
	StartOffset  int    `json:"startOffset"`
	EndOffset    int    `json:"endOffset"`
	Text         string `json:"text"`
}

// NewID returns a fresh random identifier
func NewID() string {
	return uuid.NewString()
}

// New creates a session with a fresh id dated now.
func New(sessionType Type, duration time.Duration, analysis *AnalysisResult) *Session {
	return &Session{
		ID:          NewID(),
		Date:        time.Now().UTC(),
		Duration:    duration.Seconds(),
		Type:        sessionType,
		Analysis:    analysis,
		Codes:       []Code{},
		Annotations: []Annotation{},
	}
}

// NewDegraded creates a session that carries only the raw transcript,
// used when analysis failed.
func NewDegraded(sessionType Type, duration time.Duration, turns []transcript.Turn) *Session {
	s := New(sessionType, duration, &AnalysisResult{
		Takeaways:           []string{},
		Modalities:          []string{},
		DiachronicStructure: []Phase{},
		SynchronicStructure: []Quality{},
		Transcript:          turns,
	})
	s.Degraded = true
	return s
}

// Turns returns the session transcript, or nil without analysis.
func (s *Session) Turns() []transcript.Turn {
	if s.Analysis == nil {
		return nil
	}
	return s.Analysis.Transcript
}

// Segment returns the transcript turn at index.
func (s *Session) Segment(index int) (transcript.Turn, error) {
	turns := s.Turns()
	if index < 0 || index >= len(turns) {
		return transcript.Turn{}, fmt.Errorf("segment %d out of range [0, %d)", index, len(turns))
	}
	return turns[index], nil
}

// CodeByID looks up a code by id
func (s *Session) CodeByID(id string) (Code, bool) {
	for _, c := range s.Codes {
		if c.ID == id {
			return c, true
		}
	}
	return Code{}, false
}

// Validate checks structural invariants of a session loaded from storage
// or received over the API.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("invalid session type: %q", s.Type)
	}
	if s.Duration < 0 {
		return fmt.Errorf("duration must be non-negative")
	}
	turns := s.Turns()
	for _, a := range s.Annotations {
		if a.SegmentIndex < 0 || a.SegmentIndex >= len(turns) {
			return fmt.Errorf("annotation %s: segment %d out of range", a.ID, a.SegmentIndex)
		}
		length := len([]rune(turns[a.SegmentIndex].Text))
		if a.StartOffset < 0 || a.StartOffset >= a.EndOffset || a.EndOffset > length {
			return fmt.Errorf("annotation %s: invalid range [%d, %d)", a.ID, a.StartOffset, a.EndOffset)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without affecting shared
// state.
func (s *Session) Clone() *Session {
	c := *s
	if s.Analysis != nil {
		a := *s.Analysis
		a.Takeaways = append([]string(nil), s.Analysis.Takeaways...)
		a.Modalities = append([]string(nil), s.Analysis.Modalities...)
		a.DiachronicStructure = append([]Phase(nil), s.Analysis.DiachronicStructure...)
		a.SynchronicStructure = append([]Quality(nil), s.Analysis.SynchronicStructure...)
		a.Transcript = append([]transcript.Turn(nil), s.Analysis.Transcript...)
		c.Analysis = &a
	}
	c.Codes = append([]Code{}, s.Codes...)
	c.Annotations = append([]Annotation{}, s.Annotations...)
	return &c
}
