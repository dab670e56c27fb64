package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/config"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

// newRootCommand creates the root command with all subcommands registered.
// Flags are bound to their configuration keys, so they override the file
// and the environment.
func newRootCommand() *cobra.Command {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Search the Cangjie documentation corpus",
		Long: `docsearch splits the Cangjie documentation corpus into heading-tagged
chunks, embeds them into a local SQLite index, and answers natural language
or keyword queries from the terminal or as an MCP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ~/.docsearch/config.yaml)")
	flags.String("store", "", "Index directory (default data/docsearch)")
	flags.String("collection", "", "Collection name (default cangjie_corpus)")
	flags.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flags.BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	_ = v.BindPFlag("store.dir", flags.Lookup("store"))
	_ = v.BindPFlag("store.collection", flags.Lookup("collection"))

	rootCmd.AddCommand(newIngestCommand(v))
	rootCmd.AddCommand(newQueryCommand(v))
	rootCmd.AddCommand(newChunkCommand(v))
	rootCmd.AddCommand(newServeCommand(v))
	rootCmd.AddCommand(newWatchCommand(v))
	rootCmd.AddCommand(newStatusCommand(v))
	rootCmd.AddCommand(newEmbedCommand(v))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the configuration and installs the stderr logger.
// stdout stays free for results and the MCP protocol.
func loadConfig(v *viper.Viper) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// openStore opens the index. With mustExist, a missing database is an error
// instead of being created empty.
func openStore(cfg *config.Config, mustExist bool) (storage.Storage, error) {
	path := cfg.StorePath()
	if mustExist {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("index not found at %s; run: docsearch ingest", path)
		}
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return store, nil
}

// openEmbedder creates the configured embedding provider
func openEmbedder(cfg *config.Config, logger *slog.Logger) (embedder.Embedder, error) {
	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Debug("Embedder ready", "provider", emb.Provider(), "model", emb.Model(), "dimension", emb.Dimension())
	return emb, nil
}
