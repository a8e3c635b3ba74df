// Package api provides an HTTP API server for searching WCAG guidelines and
// reviewing code changes against them.
package api

import (
	"github.com/papercomputeco/wcagrag/pkg/retriever"
	"github.com/papercomputeco/wcagrag/pkg/review"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Retriever answers guideline searches. Required.
	Retriever *retriever.Retriever

	// Reviewer answers review requests. Optional; /v1/review returns 503
	// when unset.
	Reviewer *review.Service

	// DisableMCP skips mounting the MCP handler on /mcp.
	DisableMCP bool
}
