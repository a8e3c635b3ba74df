// Package reviewcmder provides the review command that matches a code diff
// against the WCAG guideline index.
package reviewcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/git"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
	"github.com/papercomputeco/wcagrag/pkg/review"
)

type reviewCommander struct {
	diffPath string
	fileName string
	k        int
	jsonOut  bool
	fromGit  bool
	staged   bool

	configDir string
	cfg       *config.Config
	logger    *slog.Logger
	in        io.Reader
	out       io.Writer
}

const reviewLongDesc string = `Review a code change for accessibility impact.

Asks the configured summarizer to describe the accessibility implications of
a unified diff, then returns the WCAG success criteria closest to that
description. The diff is read from the given file, or from stdin when the
argument is "-". Without an argument it is read from stdin when piped and
from "git diff" otherwise.

Examples:
  wcagrag review
  wcagrag review --staged
  git diff -- src/Button.tsx | wcagrag review --file-name src/Button.tsx
  wcagrag review change.diff -k 5
  wcagrag review change.diff --summarizer-provider ollama --summarizer-model llama3.2
  git diff | wcagrag review --json`

const reviewShortDesc string = "Match a diff against WCAG guidelines"

func NewReviewCmd() *cobra.Command {
	cmder := &reviewCommander{}
	keys := append(append([]string{}, stack.IndexFlags...), stack.SummarizerFlags...)

	cmd := &cobra.Command{
		Use:   "review [diff-file|-]",
		Short: reviewShortDesc,
		Long:  reviewLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = stack.LoadConfig(cmd, keys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString(stack.FlagConfigDir)
			cmder.logger = stack.NewLogger(cmd)
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1:
				cmder.diffPath = args[0]
			case cmder.fromGit || cmder.staged || isTerminal(cmder.in):
				cmder.fromGit = true
			default:
				cmder.diffPath = "-"
			}
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.fileName, "file-name", "", "File the diff applies to (defaults to the diff file name)")
	cmd.Flags().IntVarP(&cmder.k, "top", "k", retriever.DefaultK, "Number of guidelines to return")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the review as JSON")
	cmd.Flags().BoolVar(&cmder.fromGit, "git", false, "Review uncommitted changes from git diff")
	cmd.Flags().BoolVar(&cmder.staged, "staged", false, "Review staged changes from git diff --cached")
	stack.AddFlags(cmd, keys)

	return cmd
}

func (c *reviewCommander) run(ctx context.Context) error {
	diff, err := c.readDiff(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diff) == "" {
		return errors.New("diff is empty")
	}

	fileName := c.fileName
	switch {
	case fileName != "":
	case c.fromGit:
		fileName = git.RepoName(ctx)
	case c.diffPath != "-":
		fileName = c.diffPath
	}

	s, err := stack.New(ctx, stack.Options{
		Config:       c.cfg,
		ConfigDir:    c.configDir,
		WithReviewer: true,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Reviewer.Review(ctx, diff, fileName, c.k)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	c.print(res)
	return nil
}

func (c *reviewCommander) readDiff(ctx context.Context) (string, error) {
	if c.fromGit {
		diff, err := git.Diff(ctx, git.DiffOptions{Staged: c.staged})
		if err != nil {
			return "", fmt.Errorf("reading git diff: %w", err)
		}
		return diff, nil
	}

	if c.diffPath == "-" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return "", fmt.Errorf("reading diff from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(c.diffPath)
	if err != nil {
		return "", fmt.Errorf("reading diff: %w", err)
	}
	return string(data), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *reviewCommander) print(res *review.Result) {
	name := res.FileName
	if name == "" {
		name = "(stdin)"
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n", cliui.HeaderStyle.Render("Accessibility review of"), cliui.KeyStyle.Render(name))

	rendered, err := cliui.RenderMarkdown(res.Description)
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprint(c.out, rendered)

	if len(res.Matches) == 0 {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("No matching guidelines."))
		return
	}

	fmt.Fprintf(c.out, "%s\n\n", cliui.HeaderStyle.Render("Relevant guidelines"))
	for i, m := range res.Matches {
		fmt.Fprintf(c.out, "  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.GuidelineLine(m.Guideline, m.Score),
		)
		fmt.Fprintf(c.out, "     %s\n\n", cliui.DimStyle.Render(m.Guideline.URL))
	}
}
