// Package browsecmder provides the browse command, an interactive terminal
// UI for searching and reading WCAG guidelines.
package browsecmder

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/logger"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

type browseCommander struct {
	k int

	configDir string
	cfg       *config.Config
}

const browseLongDesc string = `Browse WCAG guidelines interactively.

Type a description of a behavior and press enter to list the closest success
criteria. Open a result to read it in full with its techniques and common
failures. The index is built on the first search if it does not exist yet.

Examples:
  wcagrag browse
  wcagrag browse "focus order in modal dialogs"`

const browseShortDesc string = "Browse WCAG guidelines in a TUI"

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:   "browse [query]",
		Short: browseShortDesc,
		Long:  browseLongDesc,
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = stack.LoadConfig(cmd, stack.IndexFlags)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString(stack.FlagConfigDir)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVarP(&cmder.k, "top", "k", 10, "Number of guidelines per search")
	stack.AddFlags(cmd, stack.IndexFlags)

	return cmd
}

func (c *browseCommander) run(ctx context.Context, initial string) error {
	// The program owns the terminal, so pipeline logs are dropped.
	s, err := stack.New(ctx, stack.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    logger.Nop(),
	})
	if err != nil {
		return err
	}
	defer s.Close()

	// Detect the background before the program owns the terminal.
	style := styles.DarkStyle
	if !termenv.HasDarkBackground() {
		style = styles.LightStyle
	}

	search := func(ctx context.Context, query string, k int) ([]retriever.Result, error) {
		return s.Retriever.QuerySimilar(ctx, query, k)
	}

	model := newBrowseModel(ctx, search, c.k, style, initial)
	_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
	return err
}
