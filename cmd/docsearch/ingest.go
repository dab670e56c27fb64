package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/internal/indexer"
)

func newIngestCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [corpus_dir] [store_dir]",
		Short: "Chunk, embed and store the corpus",
		Long: `Clone the corpus when it is missing, split every Markdown document into
chunks, embed them and replace the collection in the index.

corpus_dir and store_dir override corpus.dir and store.dir.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				v.Set("corpus.dir", args[0])
			}
			if len(args) > 1 {
				v.Set("store.dir", args[1])
			}

			cfg, logger, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			c := cfg.Corpus
			if err := corpus.EnsureCloned(ctx, c.Dir, c.Repo, c.Tag, logger); err != nil {
				return err
			}

			store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			emb, err := openEmbedder(cfg, logger)
			if err != nil {
				return err
			}
			defer emb.Close()

			idx := indexer.New(store, emb, chunker.New(cfg.ChunkerConfig()), logger)
			stats, err := idx.Ingest(ctx, cfg.IngestConfig())
			if err != nil {
				return err
			}

			printIngestSummary(cmd.OutOrStdout(), stats, cfg.StorePath())
			return nil
		},
	}
}

func printIngestSummary(w io.Writer, stats *indexer.Statistics, storePath string) {
	ok := color.New(color.FgGreen, color.Bold)
	ok.Fprintf(w, "Stored %d chunks in %s\n", stats.ChunksCreated, storePath)
	fmt.Fprintf(w, "Collection: %s. Use `docsearch query` to query.\n", stats.Collection)

	if stats.DocumentsSkipped > 0 {
		warn := color.New(color.FgYellow)
		warn.Fprintf(w, "Skipped %d unreadable documents:\n", stats.DocumentsSkipped)
		for _, msg := range stats.ErrorMessages {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}
