package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

var (
	searchToolName    = "search_guidelines"
	searchDescription = "Search WCAG 2.2 success criteria using semantic search. Returns the most relevant guidelines for a description of UI behavior or a code change, closest first, with techniques and failures."

	statusToolName    = "index_status"
	statusDescription = "Report whether the WCAG guideline index is built and how many chunks it holds."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text describing the UI behavior or change to find guidelines for"`
	K     int    `json:"k,omitempty" jsonschema:"number of guidelines to return (default: 3)"`
}

// GuidelineResult is a single matching guideline.
type GuidelineResult struct {
	RefID      string   `json:"ref_id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Score      float32  `json:"score"`
	Excerpt    string   `json:"excerpt"`
	Techniques []string `json:"techniques"`
	Failures   []string `json:"failures"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string            `json:"query"`
	Results []GuidelineResult `json:"results"`
	Count   int               `json:"count"`
}

// StatusInput is empty; index_status takes no arguments.
type StatusInput struct{}

// StatusOutput represents the output of the status tool.
type StatusOutput struct {
	State      string `json:"state"`
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Error      string `json:"error,omitempty"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), SearchOutput{}, nil
	}
	if res := kError(input.K); res != nil {
		return res, SearchOutput{}, nil
	}

	logger.Debug("MCP guideline search", "query", input.Query, "k", input.K)

	results, err := s.config.Retriever.QuerySimilar(ctx, input.Query, input.K)
	if err != nil {
		logger.Error("guideline search failed", "error", err)
		return toolError("Failed to search guidelines: %v", err), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: buildGuidelineResults(results),
		Count:   len(results),
	}
	return s.jsonResult(output), output, nil
}

// handleStatus reports the index status.
func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := s.config.Retriever.Status(ctx)
	if err != nil {
		s.config.Logger.Error("index status failed", "error", err)
		return toolError("Failed to read index status: %v", err), StatusOutput{}, nil
	}
	output := StatusOutput{
		State:      st.State.String(),
		Collection: st.Collection,
		Documents:  st.Documents,
		Error:      st.Error,
	}
	return s.jsonResult(output), output, nil
}

func buildGuidelineResults(results []retriever.Result) []GuidelineResult {
	out := make([]GuidelineResult, len(results))
	for i, r := range results {
		g := r.Guideline
		out[i] = GuidelineResult{
			RefID:      g.RefID,
			Title:      g.Title,
			URL:        g.URL,
			Score:      r.Score,
			Excerpt:    r.Text,
			Techniques: nonNil(g.Techniques),
			Failures:   nonNil(g.Failures),
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
