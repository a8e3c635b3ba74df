package stack

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/logger"
)

// Persistent flag names defined on the root command.
const (
	FlagDebug     = "debug"
	FlagConfigDir = "config-dir"
	FlagJSONLogs  = "json-logs"
	FlagLogFile   = "log-file"
)

// IndexFlags are the flags every command that touches the index registers.
var IndexFlags = []string{
	config.FlagCorpus,
	config.FlagCollection,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagBatchSize,
	config.FlagConcurrency,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStorePath,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

// SummarizerFlags are registered by commands that describe diffs.
var SummarizerFlags = []string{
	config.FlagSummarizerProv,
	config.FlagSummarizerTgt,
	config.FlagSummarizerModel,
}

// AddFlags registers the given registry flags on cmd. Values are read back
// through viper, so the targets are scratch space.
func AddFlags(cmd *cobra.Command, keys []string) {
	for _, key := range keys {
		def := config.Flags[key]
		switch def.ViperKey {
		case "index.chunk_size", "index.chunk_overlap", "index.batch_size", "index.concurrency", "embedding.dimensions":
			config.AddUintFlag(cmd, config.Flags, key, new(uint))
		default:
			config.AddStringFlag(cmd, config.Flags, key, new(string))
		}
	}
}

// LoadConfig layers flags over env over config.toml over defaults.
func LoadConfig(cmd *cobra.Command, keys []string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString(FlagConfigDir)
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	return config.FromViper(v), nil
}

// NewLogger builds the command logger: colorized on an interactive stderr,
// JSON when --json-logs is set, plain text otherwise. --log-file appends JSON
// records to a file as well. --debug adds source locations.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool(FlagDebug)
	jsonLogs, _ := cmd.Flags().GetBool(FlagJSONLogs)
	logPath, _ := cmd.Flags().GetString(FlagLogFile)

	pretty := term.IsTerminal(int(os.Stderr.Fd())) && !termenv.EnvNoColor()
	base := []logger.Option{logger.WithDebug(debug), logger.WithSource(debug)}

	console := logger.New(append(base,
		logger.WithJSON(jsonLogs),
		logger.WithPretty(pretty),
		logger.WithWriter(os.Stderr),
	)...)
	if logPath == "" {
		return console
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		console.Warn("could not open log file", "path", logPath, "error", err)
		return console
	}

	if jsonLogs {
		return logger.New(append(base, logger.WithJSON(true), logger.WithWriters(os.Stderr, logFile))...)
	}
	return logger.Multi(console, logger.New(append(base, logger.WithJSON(true), logger.WithWriter(logFile))...))
}

// AddPersistentFlags registers the flags shared by every subcommand.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolP(FlagDebug, "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool(FlagJSONLogs, false, "Emit logs as JSON")
	cmd.PersistentFlags().String(FlagLogFile, "", "Also append JSON logs to this file")
	cmd.PersistentFlags().String(FlagConfigDir, "", "Override path to .wcagrag/ config directory")
}
