package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/skypro1111/interview-service/internal/audio"
)

// Response modality requested from the model
const ModalityAudio = "AUDIO"

// SetupMessage is the first message sent after the connection opens.
type SetupMessage struct {
	Setup Setup `json:"setup"`
}

// Setup configures the live session
type Setup struct {
	Model                    string            `json:"model"`
	GenerationConfig         GenerationConfig  `json:"generationConfig"`
	SystemInstruction        *Content          `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *TranscriptionCfg `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *TranscriptionCfg `json:"outputAudioTranscription,omitempty"`
}

// TranscriptionCfg enables a transcription stream. The server accepts an
// empty object.
type TranscriptionCfg struct{}

// GenerationConfig selects output modalities and the synthesized voice
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the prebuilt voice and speech language
type SpeechConfig struct {
	VoiceConfig  VoiceConfig `json:"voiceConfig"`
	LanguageCode string      `json:"languageCode,omitempty"`
}

// VoiceConfig wraps the prebuilt voice selection
type VoiceConfig struct {
	PrebuiltVoiceConfig PrebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

// PrebuiltVoiceConfig names a prebuilt voice
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// Content is a role-tagged list of parts
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part carries either text or inline binary data
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is base64 data tagged with a MIME type
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// RealtimeInputMessage streams captured audio to the model.
type RealtimeInputMessage struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

// RealtimeInput holds media chunks
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

// SetupParams are the inputs for NewSetup
type SetupParams struct {
	Model             string
	VoiceName         string
	LanguageCode      string
	SystemInstruction string
}

// NewSetup builds the setup payload: audio responses, both transcription
// streams, the selected voice and the system instruction.
func NewSetup(params SetupParams) SetupMessage {
	model := params.Model
	if model != "" && !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	setup := Setup{
		Model: model,
		GenerationConfig: GenerationConfig{
			ResponseModalities: []string{ModalityAudio},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: VoiceConfig{
					PrebuiltVoiceConfig: PrebuiltVoiceConfig{VoiceName: params.VoiceName},
				},
				LanguageCode: params.LanguageCode,
			},
		},
		InputAudioTranscription:  &TranscriptionCfg{},
		OutputAudioTranscription: &TranscriptionCfg{},
	}

	if params.SystemInstruction != "" {
		setup.SystemInstruction = &Content{
			Parts: []Part{{Text: params.SystemInstruction}},
		}
	}

	return SetupMessage{Setup: setup}
}

// NewRealtimeInput wraps an encoded audio packet for sending.
func NewRealtimeInput(packet audio.WireAudioPacket) RealtimeInputMessage {
	return RealtimeInputMessage{
		RealtimeInput: RealtimeInput{
			MediaChunks: []Blob{{MIMEType: packet.MIMEType(), Data: packet.Payload}},
		},
	}
}

// ServerMessage is one inbound message. Any combination of fields may be set.
type ServerMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// ServerContent carries model output for the current exchange
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	GenerationComplete  bool           `json:"generationComplete,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// Transcription is an incremental transcript fragment
type Transcription struct {
	Text string `json:"text"`
}

// GoAway announces that the server will close the connection soon
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// ParseServerMessage decodes one inbound JSON message.
func ParseServerMessage(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse server message: %w", err)
	}
	return &msg, nil
}

// EventKind tags one case of an inbound message
type EventKind int

const (
	EventAudio EventKind = iota + 1
	EventOutputTranscript
	EventInputTranscript
	EventTurnComplete
	EventInterrupted
)

// String returns a human-readable name for the kind
func (k EventKind) String() string {
	switch k {
	case EventAudio:
		return "audio"
	case EventOutputTranscript:
		return "output_transcript"
	case EventInputTranscript:
		return "input_transcript"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is one case extracted from a server message.
type Event struct {
	Kind       EventKind
	Text       string // transcript fragment text
	Data       string // transport-encoded audio
	SampleRate int    // audio sample rate
}

// Events flattens every present case of the message into dispatch order:
// interruption first so stale audio is cut before anything new is queued,
// then audio, output and input transcripts, and turn completion last.
func (m *ServerMessage) Events() []Event {
	content := m.ServerContent
	if content == nil {
		return nil
	}

	var events []Event

	if content.Interrupted {
		events = append(events, Event{Kind: EventInterrupted})
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			events = append(events, Event{
				Kind:       EventAudio,
				Data:       part.InlineData.Data,
				SampleRate: SampleRateFromMIME(part.InlineData.MIMEType, audio.PlaybackSampleRate),
			})
		}
	}

	if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
		events = append(events, Event{Kind: EventOutputTranscript, Text: content.OutputTranscription.Text})
	}

	if content.InputTranscription != nil && content.InputTranscription.Text != "" {
		events = append(events, Event{Kind: EventInputTranscript, Text: content.InputTranscription.Text})
	}

	if content.TurnComplete {
		events = append(events, Event{Kind: EventTurnComplete})
	}

	return events
}

// SampleRateFromMIME reads the rate parameter of an "audio/pcm;rate=N" MIME
// type, returning fallback when absent or invalid.
func SampleRateFromMIME(mimeType string, fallback int) int {
	for _, param := range strings.Split(mimeType, ";")[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || key != "rate" {
			continue
		}
		rate, err := strconv.Atoi(value)
		if err != nil || rate <= 0 {
			return fallback
		}
		return rate
	}
	return fallback
}
