// Package anthropic implements describe.TextSummarizer with the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "claude-haiku-4-5-20251001"

	// DefaultBaseURL is the Anthropic API root.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"
	maxTokens  = 1024
)

// Config holds configuration for the Anthropic summarizer.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Timeout bounds a single call. Defaults to 60s.
	Timeout time.Duration
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
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
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarizer calls POST /v1/messages.
type Summarizer struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an Anthropic summarizer. A missing API key is a configuration
// error.
func New(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Anthropic API key is not set (set ANTHROPIC_API_KEY or run 'wcagrag auth anthropic')", embeddings.ErrConfiguration)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Summarizer{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Summarize sends prompt as a single user message and joins the text blocks
// of the reply.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(messagesRequest{
		Model:     s.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", describe.ErrSummarizer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", describe.ErrSummarizer, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic request: %w", describe.ErrSummarizer, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", describe.ErrSummarizer, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: anthropic API error (status %d): %s", describe.ErrSummarizer, resp.StatusCode, string(body))
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", describe.ErrSummarizer, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: anthropic error: %s", describe.ErrSummarizer, result.Error.Message)
	}

	var b strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String(), nil
}

var _ describe.TextSummarizer = (*Summarizer)(nil)
