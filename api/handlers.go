package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchResponse is returned by GET /v1/guidelines/search.
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []retriever.Result `json:"results"`
	Count   int                `json:"count"`
}

// ReviewRequest is the body of POST /v1/review.
type ReviewRequest struct {
	Diff     string `json:"diff"`
	FileName string `json:"file_name"`
	K        int    `json:"k,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIndexStatus returns the retriever's view of the index.
func (s *Server) handleIndexStatus(c *fiber.Ctx) error {
	st, err := s.config.Retriever.Status(c.Context())
	if err != nil {
		s.logger.Error("failed to read index status", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(st)
}

// handleSearchGuidelines handles GET /v1/guidelines/search requests.
// Query parameters:
//   - query (required): text describing the behavior to match
//   - k (optional, default 3): number of guidelines to return
func (s *Server) handleSearchGuidelines(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	k, err := parseK(c.Query("k"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	results, err := s.config.Retriever.QuerySimilar(c.Context(), query, k)
	if err != nil {
		return s.fail(c, "guideline search failed", err)
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}

// handleReview handles POST /v1/review requests.
func (s *Server) handleReview(c *fiber.Ctx) error {
	if s.config.Reviewer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "review is not configured: a summarizer is required",
		})
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.K < 0 || req.K > retriever.MaxK {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "k must be between 1 and " + strconv.Itoa(retriever.MaxK),
		})
	}

	res, err := s.config.Reviewer.Review(c.Context(), req.Diff, req.FileName, req.K)
	if err != nil {
		return s.fail(c, "review failed", err)
	}
	return c.JSON(res)
}

// fail maps pipeline errors onto HTTP status codes.
func (s *Server) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error(msg, "path", c.Path(), "status", status, "error", err)
	} else {
		s.logger.Debug(msg, "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, describe.ErrEmptyDiff):
		return fiber.StatusBadRequest
	case errors.Is(err, retriever.ErrIndexUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, embeddings.ErrEmbedding),
		errors.Is(err, describe.ErrSummarizer),
		errors.Is(err, describe.ErrEmptyDescription):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func parseK(raw string) (int, error) {
	if raw == "" {
		return retriever.DefaultK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k <= 0 || k > retriever.MaxK {
		return 0, errors.New("k must be between 1 and " + strconv.Itoa(retriever.MaxK))
	}
	return k, nil
}
