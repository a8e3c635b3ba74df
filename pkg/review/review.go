// Package review matches a code change against WCAG guidelines: it makes sure
// the index is available, describes the diff, and retrieves the guidelines
// closest to that description.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/guideline"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

// Match is a guideline relevant to a change.
type Match struct {
	Guideline guideline.Record `json:"guideline"`

	// Score is the cosine distance between the change description and the
	// guideline. Lower is more relevant.
	Score float32 `json:"score"`
}

// Result is a full review: the generated description and its matches.
type Result struct {
	FileName    string  `json:"file_name"`
	Description string  `json:"description"`
	Matches     []Match `json:"matches"`
}

// Config is the configuration for a Service.
type Config struct {
	Retriever *retriever.Retriever
	Describer *describe.Generator

	// K is the number of guidelines requested. Defaults to retriever.DefaultK.
	K int

	Logger *slog.Logger
}

// Service answers review requests.
type Service struct {
	retriever *retriever.Retriever
	describer *describe.Generator
	k         int
	logger    *slog.Logger
}

// NewService validates c and returns a Service.
func NewService(c *Config) (*Service, error) {
	if c.Retriever == nil {
		return nil, errors.New("review service requires a retriever")
	}
	if c.Describer == nil {
		return nil, errors.New("review service requires a describer")
	}
	k := c.K
	if k <= 0 {
		k = retriever.DefaultK
	}
	l := c.Logger
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Service{retriever: c.Retriever, describer: c.Describer, k: k, logger: l}, nil
}

// GetRelevantGuidelines returns the guidelines most relevant to diff, closest
// first.
func (s *Service) GetRelevantGuidelines(ctx context.Context, diff, fileName string) ([]Match, error) {
	res, err := s.Review(ctx, diff, fileName, s.k)
	if err != nil {
		return nil, err
	}
	return res.Matches, nil
}

// Review is GetRelevantGuidelines that also returns the description and
// accepts a per-call k. k <= 0 uses the service default.
func (s *Service) Review(ctx context.Context, diff, fileName string, k int) (*Result, error) {
	if k <= 0 {
		k = s.k
	}
	start := time.Now()

	// The index comes first so a missing corpus fails before any model call.
	if err := s.retriever.EnsureReady(ctx); err != nil {
		return nil, err
	}

	desc, err := s.describer.Describe(ctx, diff, fileName)
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.QuerySimilar(ctx, desc, k)
	if err != nil {
		return nil, fmt.Errorf("retrieving guidelines for %s: %w", fileName, err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Guideline: r.Guideline, Score: r.Score}
	}

	s.logger.Info("reviewed change",
		"file", fileName,
		"matches", len(matches),
		"duration", time.Since(start),
	)

	return &Result{FileName: fileName, Description: desc, Matches: matches}, nil
}
