// Package openai implements describe.TextSummarizer with OpenAI chat
// completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = goopenai.GPT4oMini

const defaultTimeout = 60 * time.Second

// Config holds configuration for the OpenAI summarizer.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API endpoint, including the /v1 suffix.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string
}

// Summarizer calls the chat completions endpoint.
type Summarizer struct {
	client *goopenai.Client
	model  string
}

// New creates an OpenAI summarizer. A missing API key is a configuration
// error.
func New(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is not set (set OPENAI_API_KEY or run 'wcagrag auth openai')", embeddings.ErrConfiguration)
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Summarizer{client: goopenai.NewClientWithConfig(clientCfg), model: model}, nil
}

// Summarize sends prompt as a single user message.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: s.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", describe.ErrSummarizer, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", describe.ErrSummarizer, errors.New("openai returned no choices"))
	}

	return resp.Choices[0].Message.Content, nil
}

var _ describe.TextSummarizer = (*Summarizer)(nil)
