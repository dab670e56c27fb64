package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/internal/indexer"
)

func newWatchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest the corpus and re-ingest whenever a document changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			reingest := func(ctx context.Context) error {
				stats, err := idx.Ingest(ctx, cfg.IngestConfig())
				if errors.Is(err, indexer.ErrIngestInProgress) {
					logger.Warn("Ingestion already running, change ignored")
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("Corpus ingested",
					"documents", stats.DocumentsLoaded,
					"chunks", stats.ChunksCreated,
					"duration", stats.Duration)
				return nil
			}

			if err := reingest(ctx); err != nil {
				return err
			}

			w, err := corpus.NewWatcher(cfg.Source(), cfg.Watch.Debounce, reingest, logger)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().Duration("debounce", 0, "Quiet period before re-ingesting (default 500ms)")
	_ = v.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce"))

	return cmd
}
