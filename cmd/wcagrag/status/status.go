// Package statuscmder provides the status command for inspecting the
// guideline index without building it.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/dotdir"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

type statusCommander struct {
	jsonOut bool

	configDir string
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
}

// Report is the --json output of the status command.
type Report struct {
	Index       retriever.Status  `json:"index"`
	LastBuild   *dotdir.LastBuild `json:"last_build,omitempty"`
	Corpus      string            `json:"corpus"`
	VectorStore string            `json:"vector_store"`
	Embedding   string            `json:"embedding"`
	Dimensions  uint              `json:"dimensions"`
}

const statusLongDesc string = `Show the state of the guideline index.

Reports the configured corpus, vector store and embedding model, the most
recent build recorded by "wcagrag index", and how many documents the live
collection holds. Unlike search, status never builds the index.

Examples:
  wcagrag status
  wcagrag status --json`

const statusShortDesc string = "Show guideline index status"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print status as JSON")
	stack.AddFlags(cmd, stack.IndexFlags)

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
	lb, err := dotdir.NewManager().LoadLastBuild(c.configDir)
	if err != nil {
		c.logger.Warn("could not read last build", "error", err)
	}

	s, err := stack.New(ctx, stack.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Retriever.Status(ctx)
	if err != nil {
		return err
	}

	report := Report{
		Index:       st,
		LastBuild:   lb,
		Corpus:      c.cfg.Index.CorpusPath,
		VectorStore: vectorLabel(c.cfg.VectorStore),
		Embedding:   embeddingLabel(c.cfg.Embedding),
		Dimensions:  c.cfg.Embedding.Dimensions,
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	c.print(report)
	return nil
}

func (c *statusCommander) print(r Report) {
	row := func(key, value string) {
		fmt.Fprintf(c.out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-12s", key+":")), cliui.ValueStyle.Render(value))
	}

	fmt.Fprintln(c.out)
	row("Corpus", r.Corpus)
	row("Vector store", r.VectorStore)
	row("Embedding", fmt.Sprintf("%s (%d dims)", r.Embedding, r.Dimensions))
	row("Collection", r.Index.Collection)

	if r.Index.Documents > 0 {
		row("Documents", cliui.NameStyle.Render(strconv.Itoa(r.Index.Documents)))
	} else {
		row("Documents", cliui.WarnStyle.Render("none")+" "+cliui.DimStyle.Render("(run wcagrag index, or search to build on first use)"))
	}

	if r.LastBuild != nil {
		lb := r.LastBuild
		row("Last build", fmt.Sprintf("%s, %d guidelines, %d chunks in %s",
			lb.BuiltAt.Local().Format("2006-01-02 15:04:05"),
			lb.Guidelines,
			lb.Chunks,
			cliui.FormatDuration(lb.Duration),
		))
	} else {
		row("Last build", cliui.DimStyle.Render("never"))
	}
	fmt.Fprintln(c.out)
}

func vectorLabel(v config.VectorStoreConfig) string {
	switch {
	case v.Target != "":
		return v.Provider + " " + v.Target
	case v.Path != "":
		return v.Provider + " " + v.Path
	default:
		return v.Provider
	}
}

func embeddingLabel(e config.EmbeddingConfig) string {
	if e.Model == "" {
		return e.Provider
	}
	return e.Provider + " " + e.Model
}
