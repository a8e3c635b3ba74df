package servecmder

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcpserver "github.com/papercomputeco/wcagrag/api/mcp"
	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/config"
)

type mcpCommander struct {
	noReview bool

	configDir string
	cfg       *config.Config
	logger    *slog.Logger
}

const mcpLongDesc string = `Serve the guideline tools over MCP on stdio.

Exposes search_guidelines, index_status and, when a summarizer is
configured, review_diff to an MCP client that launches wcagrag as a
subprocess. Logs go to stderr so stdout carries only protocol messages.

Example client configuration:
  {"command": "wcagrag", "args": ["serve", "mcp"]}`

const mcpShortDesc string = "Serve MCP tools over stdio"

func newMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = stack.LoadConfig(cmd, serveFlags)
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

	cmd.Flags().BoolVar(&cmder.noReview, "no-review", false, "Do not create a summarizer or expose review_diff")
	stack.AddFlags(cmd, serveFlags)

	return cmd
}

func (c *mcpCommander) run(ctx context.Context) error {
	s, err := newStack(ctx, c.cfg, c.configDir, !c.noReview, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	server, err := mcpserver.NewServer(mcpserver.Config{
		Retriever: s.Retriever,
		Reviewer:  s.Reviewer,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.logger.Info("serving MCP over stdio", "collection", s.Retriever.Collection(), "review", s.Reviewer != nil)
	return server.MCPServer().Run(ctx, &mcp.StdioTransport{})
}
