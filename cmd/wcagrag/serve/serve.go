// Package servecmder provides the serve command that runs the guideline API
// server, and its mcp subcommand that serves the same tools over stdio.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/wcagrag/api"
	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/index"
)

// serveFlags are the registry flags shared by serve and serve mcp.
var serveFlags = append(append([]string{}, stack.IndexFlags...), stack.SummarizerFlags...)

type serveCommander struct {
	watch    bool
	warm     bool
	noMCP    bool
	noReview bool
	debounce time.Duration

	configDir string
	cfg       *config.Config
	logger    *slog.Logger
}

const serveLongDesc string = `Run the wcagrag API server.

Serves guideline search, index status and diff review over HTTP, and the
same operations as MCP tools at /mcp. The index is built from the corpus on
the first query unless --warm is given.

Review needs a summarizer. If its credentials are missing the server starts
without the review endpoint and tool.

With --watch the corpus file is watched and the index rebuilt whenever it
changes.

Routes:
  GET  /ping
  GET  /v1/index/status
  GET  /v1/guidelines/search?query=...&k=3
  POST /v1/review
  ANY  /mcp

Use "wcagrag serve mcp" to serve the MCP tools over stdio instead.

Examples:
  wcagrag serve
  wcagrag serve --listen :9000 --watch
  wcagrag serve --vector-store-provider qdrant --vector-store-target localhost:6334`

const serveShortDesc string = "Run the API and MCP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}
	keys := append(append([]string{}, serveFlags...), config.FlagAPIListen)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = stack.LoadConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString(stack.FlagConfigDir)
			cmder.logger = stack.NewLogger(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Rebuild the index when the corpus file changes")
	cmd.Flags().BoolVar(&cmder.warm, "warm", false, "Build the index at startup instead of on the first query")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().BoolVar(&cmder.noReview, "no-review", false, "Do not create a summarizer or serve review")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", index.DefaultDebounce, "Quiet period before a corpus change triggers a rebuild")
	stack.AddFlags(cmd, keys)

	cmd.AddCommand(newMCPCmd())

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	s, err := newStack(ctx, c.cfg, c.configDir, !c.noReview, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		Retriever:  s.Retriever,
		Reviewer:   s.Reviewer,
		DisableMCP: c.noMCP,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Run(); err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down API server")
		return server.Shutdown()
	})

	if c.warm {
		g.Go(func() error {
			if err := s.Retriever.EnsureReady(gctx); err != nil {
				c.logger.Error("warming index failed", "error", err)
			}
			return nil
		})
	}

	if c.watch {
		corpus := c.cfg.Index.CorpusPath
		g.Go(func() error {
			err := index.WatchCorpus(gctx, corpus, c.debounce, c.logger, func(ctx context.Context) error {
				return c.rebuild(ctx, s, corpus)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func (c *serveCommander) rebuild(ctx context.Context, s *stack.Stack, corpus string) error {
	res, err := s.Retriever.InitializeFile(ctx, corpus)
	if err != nil {
		return err
	}
	s.RecordBuild(c.configDir, res)
	return nil
}

// newStack builds the pipeline. When withReviewer is set but the summarizer
// is not configured, it falls back to a stack without review.
func newStack(ctx context.Context, cfg *config.Config, configDir string, withReviewer bool, logger *slog.Logger) (*stack.Stack, error) {
	opts := stack.Options{
		Config:       cfg,
		ConfigDir:    configDir,
		WithReviewer: withReviewer,
		Logger:       logger,
	}

	s, err := stack.New(ctx, opts)
	if err == nil || !withReviewer || !errors.Is(err, embeddings.ErrConfiguration) {
		return s, err
	}

	logger.Warn("review disabled", "error", err)
	opts.WithReviewer = false
	return stack.New(ctx, opts)
}
