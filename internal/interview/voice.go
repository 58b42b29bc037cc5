package interview

import "github.com/skypro1111/interview-service/internal/session"

// Voice is a prebuilt speech model voice and its speech language
type Voice struct {
	Name         string
	LanguageCode string
}

type voiceKey struct {
	language session.Language
	gender   session.VoiceGender
}

var voices = map[voiceKey]Voice{
	{session.LanguageUS, session.VoiceMale}:   {Name: "Puck", LanguageCode: "en-US"},
	{session.LanguageUS, session.VoiceFemale}: {Name: "Kore", LanguageCode: "en-US"},
	{session.LanguageUK, session.VoiceMale}:   {Name: "Charon", LanguageCode: "en-GB"},
	{session.LanguageUK, session.VoiceFemale}: {Name: "Aoede", LanguageCode: "en-GB"},
}

// VoiceFor returns the voice for a language and gender. Unknown
// combinations fall back to the UK female voice.
func VoiceFor(language session.Language, gender session.VoiceGender) Voice {
	if v, ok := voices[voiceKey{language, gender}]; ok {
		return v
	}
	return voices[voiceKey{session.LanguageUK, session.VoiceFemale}]
}

// LanguageName returns the English name used in prompts
func LanguageName(language session.Language) string {
	if language == session.LanguageUS {
		return "American English"
	}
	return "British English"
}
