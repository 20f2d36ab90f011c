package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/relohub/platform/internal/models"
)

const searchSystemPrompt = `You are a US rental listing researcher. Given search
criteria, return plausible current rental listings as a JSON array. Each element:
{"title","address","city","price_usd","bedrooms","bathrooms","url","summary"}.
price_usd is the monthly rent as an integer. Return ONLY the JSON array, no
other text.`

// ClaudeSearcher implements Searcher against the Anthropic Messages API.
type ClaudeSearcher struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds the search API settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClaudeSearcher creates a listing searcher backed by the LLM API.
func NewClaudeSearcher(cfg Config, logger *slog.Logger) *ClaudeSearcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ClaudeSearcher{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  2000,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "listings"),
	}
}

var _ Searcher = (*ClaudeSearcher)(nil)

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Search asks the model for listings matching the query and parses its
// JSON answer.
func (s *ClaudeSearcher) Search(ctx context.Context, q Query) ([]models.ListingResult, error) {
	if strings.TrimSpace(q.City) == "" {
		return nil, ErrEmptyQuery
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrSearchUnavailable)
	}

	prompt := fmt.Sprintf("City: %s", q.City)
	if q.MaxBudget > 0 {
		prompt += fmt.Sprintf("\nMax monthly budget: $%d", q.MaxBudget)
	}
	if q.Bedrooms > 0 {
		prompt += fmt.Sprintf("\nBedrooms: %d", q.Bedrooms)
	}
	if q.Notes != "" {
		prompt += "\nAdditional constraints: " + q.Notes
	}

	reqBody := messagesRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    searchSystemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	text, err := s.complete(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	results, err := parseResults(text)
	if err != nil {
		s.logger.Error("unparseable search response", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return results, nil
}

func (s *ClaudeSearcher) complete(ctx context.Context, reqBody messagesRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("search API error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("%w: status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrSearchUnavailable)
	}

	s.logger.Debug("search completion",
		"input_tokens", parsed.Usage.InputTokens,
		"output_tokens", parsed.Usage.OutputTokens,
	)
	return parsed.Content[0].Text, nil
}

// parseResults extracts the JSON array from the completion text. Models
// occasionally wrap the array in code fences or prose despite the prompt.
func parseResults(text string) ([]models.ListingResult, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in completion")
	}

	var results []models.ListingResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &results); err != nil {
		return nil, fmt.Errorf("parsing listings: %w", err)
	}
	return results, nil
}
