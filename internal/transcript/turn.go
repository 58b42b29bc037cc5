package transcript

import "fmt"

// SpeakerClass classifies an incoming fragment by its producing side.
type SpeakerClass string

const (
	ClassModel       SpeakerClass = "model"
	ClassParticipant SpeakerClass = "participant"
)

// Speaker is the attribution recorded on a finalized turn.
type Speaker string

const (
	SpeakerAI          Speaker = "AI"
	SpeakerInterviewee Speaker = "Interviewee"
)

// Speaker returns the turn attribution for a fragment class.
func (c SpeakerClass) Speaker() Speaker {
	if c == ClassModel {
		return SpeakerAI
	}
	return SpeakerInterviewee
}

// Turn is one uninterrupted span of speech from a single speaker.
// StartTime is seconds since session start at the moment the turn began.
type Turn struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
}

// Timestamp formats the turn start as mm:ss.
func (t Turn) Timestamp() string {
	return FormatTimestamp(t.StartTime)
}

// FormatTimestamp formats seconds as zero-padded mm:ss. Minutes are not
// wrapped into hours.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
