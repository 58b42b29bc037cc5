package analysis

import (
	"fmt"
	"strings"

	"github.com/skypro1111/interview-service/internal/interview"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

// Request is one analysis call
type Request struct {
	Turns    []transcript.Turn
	Language session.Language

	// Unattributed marks an imported raw transcript; the model is asked to
	// split it into speaker turns.
	Unattributed bool
}

// BuildPrompt renders the instruction and transcript for a request
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a qualitative research analyst. Analyze the interview transcript below.\n")
	fmt.Fprintf(&b, "Write every field in %s.\n", interview.LanguageName(req.Language))
	b.WriteString("Identify the chronological phases (diachronic structure) and the thematic categories (synchronic structure).\n")

	if req.Unattributed {
		b.WriteString("The transcript was imported as plain text without reliable speaker labels. ")
		b.WriteString("Split it into turns, labelling the interviewer as \"AI\" and the participant as \"Interviewee\", ")
		b.WriteString("and estimate startTime in seconds from the reading order.\n")
	} else {
		b.WriteString("Return the transcript turns unchanged, in order.\n")
	}

	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript.Flatten(req.Turns))
	b.WriteString("\n")

	return b.String()
}
