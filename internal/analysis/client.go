package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

// ErrAnalysisFailure is returned when the model rejects the request or
// returns an empty or unusable result. There are no automatic retries.
var ErrAnalysisFailure = errors.New("analysis failed")

// Client calls the generateContent endpoint with a response schema
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Concurrency limit

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains analysis client configuration
type Config struct {
	Endpoint      string // API base, e.g. https://generativelanguage.googleapis.com/v1beta
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxConcurrent int
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *Schema `json:"responseSchema"`
	Temperature      float32 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// NewClient creates a new analysis client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 2
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Analyze sends the transcript and returns the structured result
func (c *Client) Analyze(ctx context.Context, req Request) (*session.AnalysisResult, error) {
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("%w: transcript is empty", ErrAnalysisFailure)
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for a request slot: %w", ErrAnalysisFailure, ctx.Err())
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	result, err := c.doRequest(ctx, req)
	if err != nil {
		c.incrementFailedRequests()
		if !errors.Is(err, ErrAnalysisFailure) {
			err = fmt.Errorf("%w: %v", ErrAnalysisFailure, err)
		}
		return nil, err
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, req Request) (*session.AnalysisResult, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: BuildPrompt(req)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   ResultSchema(),
			Temperature:      0.2,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Interview-Service/1.0")
	if c.config.APIKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP error %d: %s", ErrAnalysisFailure, resp.StatusCode, truncate(string(respBody), 512))
	}

	var generated generateResponse
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response JSON: %v", ErrAnalysisFailure, err)
	}

	return parseResult(generated)
}

func (c *Client) requestURL() string {
	model := c.config.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return strings.TrimRight(c.config.Endpoint, "/") + "/" + url.PathEscape(model) + ":generateContent"
}

func parseResult(generated generateResponse) (*session.AnalysisResult, error) {
	if generated.PromptFeedback != nil && generated.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", ErrAnalysisFailure, generated.PromptFeedback.BlockReason)
	}
	if len(generated.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates returned", ErrAnalysisFailure)
	}

	var text strings.Builder
	for _, p := range generated.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("%w: empty response (finish reason %s)", ErrAnalysisFailure, generated.Candidates[0].FinishReason)
	}

	var result session.AnalysisResult
	if err := json.Unmarshal([]byte(text.String()), &result); err != nil {
		return nil, fmt.Errorf("%w: response is not a valid analysis: %v", ErrAnalysisFailure, err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("%w: analysis has no summary", ErrAnalysisFailure)
	}

	normalize(&result)
	return &result, nil
}

// normalize replaces nil slices and unknown speakers so the result is safe
// to store and render.
func normalize(result *session.AnalysisResult) {
	if result.Takeaways == nil {
		result.Takeaways = []string{}
	}
	if result.Modalities == nil {
		result.Modalities = []string{}
	}
	if result.DiachronicStructure == nil {
		result.DiachronicStructure = []session.Phase{}
	}
	if result.SynchronicStructure == nil {
		result.SynchronicStructure = []session.Quality{}
	}
	if result.PhasesCount == 0 {
		result.PhasesCount = len(result.DiachronicStructure)
	}

	turns := result.Transcript[:0]
	for _, t := range result.Transcript {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		if t.Speaker != transcript.SpeakerAI {
			t.Speaker = transcript.SpeakerInterviewee
		}
		turns = append(turns, t)
	}
	result.Transcript = turns
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close waits for in-flight requests to finish
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}
	return nil
}
