// Package wcagragcmder assembles the wcagrag root command.
package wcagragcmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/wcagrag/cmd/version"
	authcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/auth"
	browsecmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/browse"
	configcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/config"
	indexcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/index"
	reviewcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/review"
	searchcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/search"
	servecmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/serve"
	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	statuscmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/status"
)

const wcagragLongDesc string = `wcagrag matches text and code changes to WCAG 2.2 success criteria.

Guidelines are loaded from a JSON corpus, chunked, embedded and stored in a
vector store. Queries return the closest criteria with their techniques and
common failures.

Get started:
  wcagrag config preset offline   Use the local hash embedder, no API keys
  wcagrag search "images without alt text"
  git diff | wcagrag review       Describe a change and match it to guidelines
  wcagrag serve                   Run the HTTP API and MCP endpoint

Configuration is read from .wcagrag/config.toml, WCAGRAG_* environment
variables and flags, in increasing order of precedence.`

const wcagragShortDesc string = "wcagrag - WCAG guideline retrieval"

func NewWcagragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wcagrag",
		Short:        wcagragShortDesc,
		Long:         wcagragLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	stack.AddPersistentFlags(cmd)

	// Add subcommands
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(reviewcmder.NewReviewCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
