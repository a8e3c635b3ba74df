// Package searchcmder provides the search command for finding the WCAG
// success criteria closest to a piece of text.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wcagrag/api"
	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

type searchCommander struct {
	query     string
	k         int
	full      bool
	jsonOut   bool
	quiet     bool
	apiTarget string

	configDir string
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
}

const searchLongDesc string = `Search the WCAG guideline index.

Embeds the query and returns the k success criteria whose text is closest to
it, one result per guideline, closest first. The score is the cosine
distance, so lower is better.

The index is built from the configured corpus on first use. With
--api-target the query is sent to a running "wcagrag serve" instead.

Use --quiet to print only ref ids, one per line.

Examples:
  wcagrag search "images without alt text"
  wcagrag search "focus moves unexpectedly" -k 5 --full
  wcagrag search "color contrast" --json
  wcagrag search "keyboard trap" --api-target http://localhost:8081`

const searchShortDesc string = "Search WCAG guidelines"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = strings.TrimSpace(args[0])
			if cmder.query == "" {
				return fmt.Errorf("query must not be empty")
			}
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&cmder.k, "top", "k", retriever.DefaultK, "Number of guidelines to return")
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Render each guideline in full")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only ref ids, one per line")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", "", "Query a running wcagrag API server instead of the local index")
	stack.AddFlags(cmd, stack.IndexFlags)

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	var (
		results []retriever.Result
		err     error
	)
	if c.apiTarget != "" {
		results, err = SearchAPI(ctx, c.apiTarget, c.query, c.k)
	} else {
		results, err = c.searchLocal(ctx)
	}
	if err != nil {
		return err
	}

	switch {
	case c.jsonOut:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.SearchResponse{Query: c.query, Results: results, Count: len(results)})
	case c.quiet:
		for _, r := range results {
			fmt.Fprintln(c.out, r.Guideline.RefID)
		}
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(c.out, "No guidelines found.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Guidelines for:"),
		cliui.KeyStyle.Render(strconv.Quote(c.query)),
	)

	for i, r := range results {
		if c.full {
			rendered, err := cliui.RenderMarkdown(cliui.GuidelineMarkdown(r.Guideline, r.Score))
			if err != nil {
				c.logger.Debug("markdown rendering failed", "error", err)
			}
			fmt.Fprint(c.out, rendered)
			continue
		}

		fmt.Fprintf(c.out, "  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.GuidelineLine(r.Guideline, r.Score),
		)
		fmt.Fprintf(c.out, "     %s\n", cliui.ValueStyle.Render(cliui.Preview(r.Text, 76)))
		fmt.Fprintf(c.out, "     %s\n\n", cliui.DimStyle.Render(r.Guideline.URL))
	}

	return nil
}

func (c *searchCommander) searchLocal(ctx context.Context) ([]retriever.Result, error) {
	s, err := stack.New(ctx, stack.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.Retriever.QuerySimilar(ctx, c.query, c.k)
}

// SearchAPI queries GET /v1/guidelines/search on a running API server.
func SearchAPI(ctx context.Context, apiTarget, query string, k int) ([]retriever.Result, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/guidelines/search"
	q := searchURL.Query()
	q.Set("query", query)
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wcagrag API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.SearchResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return output.Results, nil
}
