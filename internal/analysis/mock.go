package analysis

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

// MockHandler serves a deterministic generateContent endpoint for local
// development. It parses the transcript out of the prompt and answers with
// a result shaped like the real model's.
func MockHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Error parsing request", http.StatusBadRequest)
			return
		}
		if len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
			http.Error(w, "Empty contents", http.StatusBadRequest)
			return
		}

		result := MockResult(req.Contents[0].Parts[0].Text)
		text, err := json.Marshal(result)
		if err != nil {
			http.Error(w, "Error encoding result", http.StatusInternalServerError)
			return
		}

		var resp generateResponse
		resp.Candidates = append(resp.Candidates, struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		}{
			Content:      content{Role: "model", Parts: []part{{Text: string(text)}}},
			FinishReason: "STOP",
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
}

// MockResult builds an analysis from the "Speaker: text" lines that follow
// the transcript marker in a prompt.
func MockResult(prompt string) *session.AnalysisResult {
	_, body, _ := strings.Cut(prompt, "\nTranscript:\n")

	var turns []transcript.Turn
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		speaker, text, ok := strings.Cut(line, ": ")
		if !ok {
			speaker, text = string(transcript.SpeakerInterviewee), line
		}
		turn := transcript.Turn{
			Speaker:   transcript.SpeakerInterviewee,
			Text:      text,
			StartTime: float64(len(turns) * 5),
		}
		if speaker == string(transcript.SpeakerAI) {
			turn.Speaker = transcript.SpeakerAI
		}
		turns = append(turns, turn)
	}

	result := &session.AnalysisResult{
		Summary:             fmt.Sprintf("Mock analysis of an interview with %d turns.", len(turns)),
		Takeaways:           []string{},
		Modalities:          []string{"verbal"},
		DiachronicStructure: []session.Phase{},
		SynchronicStructure: []session.Quality{{Category: "Mock", Details: "Generated without a model"}},
		Transcript:          turns,
	}

	for i := 0; i < len(turns); i += 3 {
		result.DiachronicStructure = append(result.DiachronicStructure, session.Phase{
			PhaseName:   fmt.Sprintf("Phase %d", len(result.DiachronicStructure)+1),
			Description: truncate(turns[i].Text, 80),
			StartTime:   turns[i].Timestamp(),
		})
	}
	result.PhasesCount = len(result.DiachronicStructure)

	for _, t := range turns {
		if t.Speaker == transcript.SpeakerInterviewee && len(result.Takeaways) < 3 {
			result.Takeaways = append(result.Takeaways, truncate(t.Text, 120))
		}
	}

	return result
}
