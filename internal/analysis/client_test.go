package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

const sampleAnalysis = `{
  "summary": "The participant describes learning to swim.",
  "takeaways": ["Fear faded with practice"],
  "modalities": ["bodily"],
  "phasesCount": 2,
  "diachronicStructure": [
    {"phaseName": "Before", "description": "Fear of water", "startTime": "00:00"},
    {"phaseName": "After", "description": "Confidence", "startTime": "01:10"}
  ],
  "synchronicStructure": [{"category": "Emotion", "details": "Fear then calm"}],
  "transcript": [
    {"speaker": "AI", "text": "Tell me about the first lesson.", "startTime": 0},
    {"speaker": "participant", "text": "I was scared.", "startTime": 3.5}
  ]
}`

func sampleTurns() []transcript.Turn {
	return []transcript.Turn{
		{Speaker: transcript.SpeakerAI, Text: "Tell me about the first lesson.", StartTime: 0},
		{Speaker: transcript.SpeakerInterviewee, Text: "I was scared.", StartTime: 3.5},
	}
}

func wrapCandidate(text string) string {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Endpoint: server.URL + "/v1beta",
		APIKey:   "test-key",
		Model:    "gemini-test",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Endpoint: "http://localhost", Model: "m"}, false},
		{"missing endpoint", Config{Model: "m"}, true},
		{"missing model", Config{Endpoint: "http://localhost"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, wrapCandidate(sampleAnalysis))
	})

	result, err := client.Analyze(context.Background(), Request{Turns: sampleTurns(), Language: session.LanguageUS})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Errorf("Expected generateContent path, got %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}
	if gotBody.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("Expected JSON response MIME type, got %q", gotBody.GenerationConfig.ResponseMIMEType)
	}
	if gotBody.GenerationConfig.ResponseSchema == nil || gotBody.GenerationConfig.ResponseSchema.Properties["summary"] == nil {
		t.Error("Expected response schema with summary property")
	}
	prompt := gotBody.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Interviewee: I was scared.") {
		t.Errorf("Expected flattened transcript in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "American English") {
		t.Errorf("Expected language in prompt, got %q", prompt)
	}

	if result.PhasesCount != 2 || len(result.DiachronicStructure) != 2 {
		t.Errorf("Expected 2 phases, got %d / %d", result.PhasesCount, len(result.DiachronicStructure))
	}
	if result.Transcript[1].Speaker != transcript.SpeakerInterviewee {
		t.Errorf("Expected unknown speaker normalized to Interviewee, got %s", result.Transcript[1].Speaker)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Expected 1 successful request, got %+v", stats)
	}
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"not json", http.StatusOK, `not json`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"empty text", http.StatusOK, wrapCandidate("")},
		{"invalid analysis", http.StatusOK, wrapCandidate("{\"summary\": 3}")},
		{"missing summary", http.StatusOK, wrapCandidate("{\"takeaways\": []}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.Analyze(context.Background(), Request{Turns: sampleTurns()})
			if !errors.Is(err, ErrAnalysisFailure) {
				t.Errorf("Expected ErrAnalysisFailure, got %v", err)
			}

			stats := client.GetStats()
			if stats.FailedRequests != 1 {
				t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
			}
		})
	}
}

func TestAnalyzeNoRetry(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := client.Analyze(context.Background(), Request{Turns: sampleTurns()}); err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 request, got %d", calls)
	}
}

func TestAnalyzeCancelledWhileQueued(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request while every slot is taken")
	})

	// Occupy every slot
	for i := 0; i < cap(client.semaphore); i++ {
		client.semaphore <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Analyze(ctx, Request{Turns: sampleTurns()})
	if !errors.Is(err, ErrAnalysisFailure) {
		t.Errorf("Expected ErrAnalysisFailure, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request for an empty transcript")
	})

	_, err := client.Analyze(context.Background(), Request{})
	if !errors.Is(err, ErrAnalysisFailure) {
		t.Errorf("Expected ErrAnalysisFailure, got %v", err)
	}
}

func TestBuildPromptUnattributed(t *testing.T) {
	prompt := BuildPrompt(Request{
		Turns:        transcript.FromRawText("hello there"),
		Language:     session.LanguageUK,
		Unattributed: true,
	})

	if !strings.Contains(prompt, "without reliable speaker labels") {
		t.Errorf("Expected segmentation instruction, got %q", prompt)
	}
	if !strings.Contains(prompt, "British English") {
		t.Errorf("Expected British English, got %q", prompt)
	}
}

func TestClientAgainstMockHandler(t *testing.T) {
	client := newTestClient(t, MockHandler().ServeHTTP)

	turns := []transcript.Turn{
		{Speaker: transcript.SpeakerAI, Text: "Where shall we start?", StartTime: 0},
		{Speaker: transcript.SpeakerInterviewee, Text: "At the beginning: the lake.", StartTime: 2},
		{Speaker: transcript.SpeakerAI, Text: "What did it feel like?", StartTime: 9},
		{Speaker: transcript.SpeakerInterviewee, Text: "Cold.", StartTime: 12},
	}

	result, err := client.Analyze(context.Background(), Request{Turns: turns, Language: session.LanguageUK})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Transcript) != 4 {
		t.Fatalf("Expected 4 turns, got %d", len(result.Transcript))
	}
	if result.Transcript[1].Text != "At the beginning: the lake." {
		t.Errorf("Expected text with colon preserved, got %q", result.Transcript[1].Text)
	}
	if result.PhasesCount != 2 {
		t.Errorf("Expected 2 phases, got %d", result.PhasesCount)
	}
	if len(result.Takeaways) != 2 {
		t.Errorf("Expected 2 takeaways, got %d", len(result.Takeaways))
	}
}
