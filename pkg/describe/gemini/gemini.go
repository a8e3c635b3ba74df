// Package gemini implements describe.TextSummarizer with Gemini
// GenerateContent.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Config holds configuration for the Gemini summarizer.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string
}

// Summarizer wraps genai's GenerateContent.
type Summarizer struct {
	client *genai.Client
	model  string
}

// New creates a Gemini summarizer. A missing API key is a configuration
// error.
func New(ctx context.Context, cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is not set (set GEMINI_API_KEY or run 'wcagrag auth gemini')", embeddings.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %w", embeddings.ErrConfiguration, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Summarizer{client: client, model: model}, nil
}

// Summarize sends prompt as a single user turn and returns the reply text.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", describe.ErrSummarizer, err)
	}
	return resp.Text(), nil
}

var _ describe.TextSummarizer = (*Summarizer)(nil)
