// Package mcp provides an MCP (Model Context Protocol) server exposing WCAG
// guideline retrieval as tools.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/wcagrag/pkg/retriever"
	"github.com/papercomputeco/wcagrag/pkg/review"
	"github.com/papercomputeco/wcagrag/pkg/utils"
)

type Config struct {
	// Retriever answers guideline searches
	Retriever *retriever.Retriever

	// Reviewer matches diffs to guidelines (optional, enables review_diff tool)
	Reviewer *review.Service

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the guideline tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "wcagrag",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Retriever == nil {
			return nil, errors.New("retriever is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        statusToolName,
			Description: statusDescription,
		}, s.handleStatus)

		if c.Reviewer != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        reviewToolName,
				Description: reviewDescription,
			}, s.handleReview)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, e.g. to connect it over stdio.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// toolError reports a failure to the calling model instead of the transport.
func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult serializes structured output into a TextContent block as well,
// for clients that only read text.
func (s *Server) jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		return toolError("Failed to serialize results: %v", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// kError reports a k outside 0..retriever.MaxK. Zero selects the default.
func kError(k int) *mcp.CallToolResult {
	if k < 0 || k > retriever.MaxK {
		return toolError("k must be between 1 and %d", retriever.MaxK)
	}
	return nil
}
