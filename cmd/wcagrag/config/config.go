// Package configcmder provides the config command for managing persistent
// wcagrag configuration stored in the .wcagrag/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent wcagrag configuration.

Configuration is stored as config.toml in the .wcagrag/ directory and provides
default values for command flags. CLI flags and WCAGRAG_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  index.corpus_path, index.collection, index.chunk_size,
  index.chunk_overlap, index.batch_size, index.concurrency,
  vector_store.provider, vector_store.target, vector_store.path,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.requests_per_second,
  summarizer.provider, summarizer.target, summarizer.model,
  api.listen, events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  wcagrag config set <key> <value>    Set a configuration value
  wcagrag config get <key>            Get a configuration value
  wcagrag config list                 List all configuration values
  wcagrag config preset <name>        Write a provider preset

Examples:
  wcagrag config preset ollama
  wcagrag config set vector_store.provider qdrant
  wcagrag config set embedding.dimensions 768
  wcagrag config get index.collection
  wcagrag config list`

const configShortDesc string = "Manage persistent wcagrag configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
