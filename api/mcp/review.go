package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	reviewToolName    = "review_diff"
	reviewDescription = "Describe a code diff with a focus on its accessibility impact and return the WCAG 2.2 success criteria most relevant to it."
)

// ReviewInput represents the input arguments for the review tool.
type ReviewInput struct {
	Diff     string `json:"diff" jsonschema:"the unified diff of the change"`
	FileName string `json:"file_name,omitempty" jsonschema:"the file the diff applies to"`
	K        int    `json:"k,omitempty" jsonschema:"number of guidelines to return (default: 3)"`
}

// ReviewOutput represents the output of the review tool.
type ReviewOutput struct {
	FileName    string            `json:"file_name"`
	Description string            `json:"description"`
	Results     []GuidelineResult `json:"results"`
	Count       int               `json:"count"`
}

// handleReview processes a review request.
func (s *Server) handleReview(ctx context.Context, _ *mcp.CallToolRequest, input ReviewInput) (*mcp.CallToolResult, ReviewOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.Diff) == "" {
		return toolError("diff is required"), ReviewOutput{}, nil
	}
	if res := kError(input.K); res != nil {
		return res, ReviewOutput{}, nil
	}

	logger.Debug("MCP review request", "file", input.FileName, "k", input.K)

	res, err := s.config.Reviewer.Review(ctx, input.Diff, input.FileName, input.K)
	if err != nil {
		logger.Error("review failed", "file", input.FileName, "error", err)
		return toolError("Failed to review diff: %v", err), ReviewOutput{}, nil
	}

	results := make([]GuidelineResult, len(res.Matches))
	for i, m := range res.Matches {
		g := m.Guideline
		results[i] = GuidelineResult{
			RefID:      g.RefID,
			Title:      g.Title,
			URL:        g.URL,
			Score:      m.Score,
			Excerpt:    g.Description,
			Techniques: nonNil(g.Techniques),
			Failures:   nonNil(g.Failures),
		}
	}

	output := ReviewOutput{
		FileName:    res.FileName,
		Description: res.Description,
		Results:     results,
		Count:       len(results),
	}
	return s.jsonResult(output), output, nil
}
