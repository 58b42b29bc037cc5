package interview

import (
	"strings"

	"github.com/skypro1111/interview-service/internal/protocol"
	"github.com/skypro1111/interview-service/internal/session"
)

const basePrompt = `You are a professional qualitative research interviewer conducting a spoken, one-to-one interview.
Ask one open question at a time and wait for the participant to finish before responding.
Follow up on what the participant says; do not lecture or answer your own questions.
Keep your turns short and conversational.`

const beginnerPrompt = `The participant is new to research interviews. Begin by briefly explaining how the interview works,
use plain language, offer gentle prompts when they hesitate, and summarize what you heard before moving on.`

const advancedPrompt = `The participant is experienced with research interviews. Skip introductions, probe for depth and
contradictions, ask for concrete examples, and explore how their experience changed over time.`

const privacyPrompt = `Before the first question, state that the conversation is recorded and transcribed for research purposes,
that the participant may skip any question or stop at any time, and ask them to confirm they agree to continue.`

// SystemInstruction builds the interviewer instruction for the settings
func SystemInstruction(settings session.Settings) string {
	var b strings.Builder

	b.WriteString(basePrompt)
	b.WriteString("\n\nSpeak ")
	b.WriteString(LanguageName(settings.Language))
	b.WriteString(" throughout the interview.\n\n")

	if settings.InterviewMode == session.ModeAdvanced {
		b.WriteString(advancedPrompt)
	} else {
		b.WriteString(beginnerPrompt)
	}

	if settings.PrivacyContract {
		b.WriteString("\n\n")
		b.WriteString(privacyPrompt)
	}

	return b.String()
}

// Setup builds the connection setup message for a live interview
func Setup(model string, settings session.Settings) protocol.SetupMessage {
	voice := VoiceFor(settings.Language, settings.VoiceGender)

	return protocol.NewSetup(protocol.SetupParams{
		Model:             model,
		VoiceName:         voice.Name,
		LanguageCode:      voice.LanguageCode,
		SystemInstruction: SystemInstruction(settings),
	})
}
