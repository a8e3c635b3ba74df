// Package describe turns a code diff into a natural-language description of
// its accessibility implications. The description, not the raw diff, is what
// gets matched against the guideline index.
package describe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/wcagrag/pkg/utils"
)

var (
	// ErrEmptyDiff is returned when there is nothing to describe.
	ErrEmptyDiff = errors.New("empty diff")

	// ErrEmptyDescription is returned when the model produced no text.
	ErrEmptyDescription = errors.New("summarizer returned an empty description")

	// ErrSummarizer wraps failures from a summarizer provider.
	ErrSummarizer = errors.New("summarizer request failed")
)

// TextSummarizer generates text for a prompt.
type TextSummarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerFunc adapts a function to TextSummarizer.
type SummarizerFunc func(ctx context.Context, prompt string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// accessibilityFocus lists what the description should cover.
var accessibilityFocus = []string{
	"UI elements being modified (buttons, forms, images, etc.)",
	"Semantic HTML changes",
	"ARIA attributes or roles",
	"Color or styling changes",
	"Interactive element behavior changes",
	"Content structure modifications",
	"Keyboard interaction changes",
	"Focus management",
	"Error handling and form validation",
	"Media alternatives",
}

// BuildPrompt returns the accessibility-analysis prompt for a diff.
func BuildPrompt(diff, fileName string) string {
	var b strings.Builder
	b.WriteString("Analyze this code diff and describe the accessibility-related changes or implications:\n\n")
	b.WriteString("File: ")
	b.WriteString(fileName)
	b.WriteString("\nDiff:\n")
	b.WriteString(diff)
	b.WriteString("\n\nFocus on describing:\n")
	for i, f := range accessibilityFocus {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString("\nProvide a concise but detailed description that captures the accessibility implications ")
	b.WriteString("of these changes. Focus on how they might affect users with different disabilities.\n")
	return b.String()
}

// Generator describes diffs with a TextSummarizer.
type Generator struct {
	summarizer TextSummarizer
	logger     *slog.Logger
}

// NewGenerator returns a Generator. A nil logger discards output.
func NewGenerator(s TextSummarizer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{summarizer: s, logger: logger}
}

// Describe asks the summarizer for an accessibility description of diff.
func (g *Generator) Describe(ctx context.Context, diff, fileName string) (string, error) {
	if strings.TrimSpace(diff) == "" {
		return "", ErrEmptyDiff
	}

	out, err := g.summarizer.Summarize(ctx, BuildPrompt(diff, fileName))
	if err != nil {
		return "", fmt.Errorf("describing %s: %w", fileName, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("describing %s: %w", fileName, ErrEmptyDescription)
	}

	g.logger.Debug("described diff",
		"file", fileName,
		"diff_bytes", len(diff),
		"description_bytes", len(out),
		"description", utils.Truncate(out, 120),
	)

	return out, nil
}
