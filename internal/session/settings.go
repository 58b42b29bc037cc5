package session

import "fmt"

// Language selects the interview accent and transcript language
type Language string

const (
	LanguageUK Language = "UK"
	LanguageUS Language = "US"
)

// VoiceGender selects the synthesized interviewer voice
type VoiceGender string

const (
	VoiceMale   VoiceGender = "MALE"
	VoiceFemale VoiceGender = "FEMALE"
)

// InterviewMode selects how much guidance the interviewer gives
type InterviewMode string

const (
	ModeBeginner InterviewMode = "BEGINNER"
	ModeAdvanced InterviewMode = "ADVANCED"
)

// Settings is the process-wide interview configuration
type Settings struct {
	Language        Language      `json:"language"`
	VoiceGender     VoiceGender   `json:"voiceGender"`
	PrivacyContract bool          `json:"privacyContract"`
	InterviewMode   InterviewMode `json:"interviewMode"`
}

// DefaultSettings returns the settings used before anything is persisted
func DefaultSettings() Settings {
	return Settings{
		Language:        LanguageUK,
		VoiceGender:     VoiceFemale,
		PrivacyContract: true,
		InterviewMode:   ModeBeginner,
	}
}

// Validate validates settings
func (s Settings) Validate() error {
	if s.Language != LanguageUK && s.Language != LanguageUS {
		return fmt.Errorf("invalid language: %q", s.Language)
	}
	if s.VoiceGender != VoiceMale && s.VoiceGender != VoiceFemale {
		return fmt.Errorf("invalid voice gender: %q", s.VoiceGender)
	}
	if s.InterviewMode != ModeBeginner && s.InterviewMode != ModeAdvanced {
		return fmt.Errorf("invalid interview mode: %q", s.InterviewMode)
	}
	return nil
}
