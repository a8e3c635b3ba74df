package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/wcagrag/api/mcp"
)

// Server is the API server for the guideline index.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The retriever is injected so the same index can be shared with a corpus
// watcher running in the same process.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/index/status", s.handleIndexStatus)
	app.Get("/v1/guidelines/search", s.handleSearchGuidelines)
	app.Post("/v1/review", s.handleReview)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Retriever: config.Retriever,
			Reviewer:  config.Reviewer,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"collection", s.config.Retriever.Collection(),
		"mcp", !s.config.DisableMCP,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
