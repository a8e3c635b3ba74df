package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/config"
)

const presetLongDesc string = `Write a provider preset to config.toml.

Replaces the embedding and summarizer sections with the preset's providers
and models while keeping the rest of the file. Switching embedding models
changes vector dimensions, so rebuild the index afterwards.

Presets:
  openai    OpenAI embeddings and gpt-4o-mini (default)
  ollama    Local Ollama embeddings and summarizer
  gemini    Gemini embeddings and summarizer
  offline   Hash embeddings with a local Ollama summarizer

Examples:
  wcagrag config preset ollama
  wcagrag index --force`

const presetShortDesc string = "Write a provider preset"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset <name>",
		Short: presetShortDesc,
		Long:  presetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(cmd.OutOrStdout(), args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runPreset(out io.Writer, name, configDir string) error {
	preset, err := config.PresetConfig(name)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Embedding = preset.Embedding
	cfg.Summarizer = preset.Summarizer

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	printTarget(out, cfger)
	fmt.Fprintf(out, "  %s Applied preset %s (embedding %s, summarizer %s)\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(name),
		cliui.ValueStyle.Render(cfg.Embedding.Provider),
		cliui.ValueStyle.Render(cfg.Summarizer.Provider),
	)
	return nil
}
