package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
)

// LLMErrorSuggestion is returned alongside the error when the model fails
// to produce a suggestion.
const LLMErrorSuggestion = "Focus on your weakest subject today and try to study for at least 60 minutes."

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	Endpoint      string // e.g. http://localhost:11434
	Model         string
	MaxRetries    int
	Temperature   float64
	WeakThreshold float64
}

// OllamaCoach computes patterns locally and asks a model served by Ollama
// for the coaching text.
type OllamaCoach struct {
	cfg  OllamaConfig
	http *http.Client
}

// NewOllamaCoach creates an Ollama backend.
func NewOllamaCoach(cfg OllamaConfig) *OllamaCoach {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.WeakThreshold <= 0 {
		cfg.WeakThreshold = engagement.DefaultWeakThreshold
	}
	return &OllamaCoach{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

// ollamaRequest is the JSON body sent to POST /api/generate.
type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// ollamaResponse is the JSON body returned by POST /api/generate (non-streaming).
type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Analyze implements domain.Coach. A model failure still returns the
// locally detected patterns with success=false.
func (c *OllamaCoach) Analyze(ctx context.Context, req domain.CoachRequest) (*domain.CoachingReport, error) {
	patterns := DetectPatterns(req.Logs)
	weak := FindWeakSubjects(req.LearningPlan, c.cfg.WeakThreshold)

	text, err := c.generate(ctx, analyzeSystemPrompt, analyzePrompt(BuildContext(req, &patterns, weak)))
	if errors.Is(err, domain.ErrCoachTimeout) {
		return nil, err
	}
	report := &domain.CoachingReport{Patterns: &patterns, WeakSubjects: weak}
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	report.Success = true
	report.Coaching = text
	return report, nil
}

// DailySuggestion implements domain.Coach.
func (c *OllamaCoach) DailySuggestion(ctx context.Context, req domain.CoachRequest) (*domain.Suggestion, error) {
	text, err := c.generate(ctx, suggestionSystemPrompt, suggestionPrompt(BuildContext(req, nil, nil)))
	if errors.Is(err, domain.ErrCoachTimeout) {
		return nil, err
	}
	if err != nil {
		return &domain.Suggestion{Success: false, Error: err.Error(), Suggestion: LLMErrorSuggestion}, nil
	}
	return &domain.Suggestion{Success: true, Suggestion: text}, nil
}

// Check pings the Ollama server.
func (c *OllamaCoach) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCoachUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", domain.ErrCoachUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *OllamaCoach) generate(ctx context.Context, system, prompt string) (string, error) {
	body := ollamaRequest{
		Model:   c.cfg.Model,
		System:  system,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: c.cfg.Temperature},
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries
	for i := 0; i < attempts; i++ {
		resp, err := c.doRequest(ctx, body)
		if err == nil {
			return strings.TrimSpace(resp.Response), nil
		}
		lastErr = err

		// Don't retry on context cancellation/timeout
		if ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		return "", domain.ErrCoachTimeout
	}
	if isConnectionError(lastErr) {
		return "", fmt.Errorf("%w: %v", domain.ErrCoachUnavailable, lastErr)
	}
	return "", lastErr
}

func (c *OllamaCoach) doRequest(ctx context.Context, body ollamaRequest) (*ollamaResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrCoachOutput, err)
	}
	if strings.TrimSpace(resp.Response) == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrCoachOutput)
	}
	return &resp, nil
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
