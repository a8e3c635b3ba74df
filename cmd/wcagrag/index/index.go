// Package indexcmder provides the index command that builds the guideline
// vector index from a corpus file.
package indexcmder

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/dotdir"
	"github.com/papercomputeco/wcagrag/pkg/index"
)

type indexCommander struct {
	force     bool
	drop      bool
	configDir string
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
}

const indexLongDesc string = `Build the WCAG guideline index.

Reads the corpus, renders every success criterion with its techniques and
failures, splits it into overlapping chunks, embeds them and stores them in
the configured vector store. The new index is written to a staging
collection and only replaces the live one once every chunk is stored.

An existing index is left alone unless --force is given. Queries build the
index on first use, so running this command is optional. --drop removes the
collection and the recorded build instead of building.

Examples:
  wcagrag index
  wcagrag index --force --corpus data/wcag_2_2_new.json
  wcagrag index --drop
  wcagrag index --vector-store-provider qdrant --vector-store-target localhost:6334`

const indexShortDesc string = "Build the guideline index"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = stack.LoadConfig(cmd, stack.IndexFlags)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString(stack.FlagConfigDir)
			cmder.logger = stack.NewLogger(cmd)
			cmder.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Rebuild even if the collection already exists")
	cmd.Flags().BoolVar(&cmder.drop, "drop", false, "Remove the collection and the recorded build")
	cmd.MarkFlagsMutuallyExclusive("force", "drop")
	stack.AddFlags(cmd, stack.IndexFlags)

	return cmd
}

func (c *indexCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	s, err := stack.New(ctx, stack.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	collection := s.Builder.Collection()

	if c.drop {
		return c.dropIndex(cmd, s)
	}

	if !c.force {
		exists, err := s.Driver.HasCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("checking collection %s: %w", collection, err)
		}
		if exists {
			fmt.Fprintf(c.out, "\n  %s Collection %s already exists. Use --force to rebuild.\n\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(collection),
			)
			return nil
		}
	}

	corpus := c.cfg.Index.CorpusPath
	var res *index.BuildResult
	err = cliui.Step(c.out, fmt.Sprintf("Indexing %s into %s", corpus, collection), func() error {
		var err error
		res, err = s.Retriever.InitializeFile(ctx, corpus)
		return err
	})
	if err != nil {
		return err
	}

	s.RecordBuild(c.configDir, res)

	fmt.Fprintf(c.out, "\n  %s %d guidelines, %d chunks, %d dimensions %s\n\n",
		cliui.KeyStyle.Render(res.Collection),
		res.Guidelines,
		res.Chunks,
		res.Dimensions,
		cliui.DimStyle.Render("("+cliui.FormatDuration(res.Duration)+")"),
	)
	return nil
}

func (c *indexCommander) dropIndex(cmd *cobra.Command, s *stack.Stack) error {
	ctx := cmd.Context()
	collection := s.Builder.Collection()

	exists, err := s.Driver.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if exists {
		if err := s.Driver.DropCollection(ctx, collection); err != nil {
			return fmt.Errorf("dropping collection %s: %w", collection, err)
		}
	}
	s.Retriever.Reset()

	if err := dotdir.NewManager().ClearLastBuild(c.configDir); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Dropped %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(collection))
	return nil
}
