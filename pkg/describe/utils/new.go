// Package describeutils builds a describe.TextSummarizer from configuration.
package describeutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/describe/anthropic"
	"github.com/papercomputeco/wcagrag/pkg/describe/gemini"
	"github.com/papercomputeco/wcagrag/pkg/describe/ollama"
	"github.com/papercomputeco/wcagrag/pkg/describe/openai"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

// Supported summarizer provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

// Providers lists the supported summarizer providers.
var Providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderGemini}

type NewSummarizerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

func NewSummarizer(ctx context.Context, o *NewSummarizerOpts) (describe.TextSummarizer, error) {
	switch o.ProviderType {
	case ProviderOpenAI:
		return openai.New(openai.Config{APIKey: o.APIKey, BaseURL: o.TargetURL, Model: o.Model})
	case ProviderAnthropic:
		return anthropic.New(anthropic.Config{APIKey: o.APIKey, BaseURL: o.TargetURL, Model: o.Model})
	case ProviderOllama:
		return ollama.New(ollama.Config{BaseURL: o.TargetURL, Model: o.Model})
	case ProviderGemini:
		return gemini.New(ctx, gemini.Config{APIKey: o.APIKey, BaseURL: o.TargetURL, Model: o.Model})
	default:
		return nil, fmt.Errorf("%w: unsupported summarizer provider: %s", embeddings.ErrConfiguration, o.ProviderType)
	}
}
