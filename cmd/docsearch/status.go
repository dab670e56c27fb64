package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/storage"
)

func newStatusCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := openStore(cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()

			collection, err := store.GetCollection(ctx, cfg.Store.Collection)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("collection %s not found; run: docsearch ingest", cfg.Store.Collection)
			}
			if err != nil {
				return err
			}

			status, err := store.GetStatus(ctx, collection.ID)
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printStatus(w io.Writer, status *storage.CollectionStatus) {
	c := status.Collection
	label := color.New(color.Bold)

	label.Fprintf(w, "Collection:    ")
	fmt.Fprintf(w, "%s\n", c.Name)
	label.Fprintf(w, "Documents:     ")
	fmt.Fprintf(w, "%d\n", status.DocumentsCount)
	label.Fprintf(w, "Chunks:        ")
	fmt.Fprintf(w, "%d\n", status.ChunksCount)
	label.Fprintf(w, "Embeddings:    ")
	fmt.Fprintf(w, "%d (%s/%s, %d dims)\n", status.EmbeddingsCount, c.EmbeddingProvider, c.EmbeddingModel, c.EmbeddingDimension)
	label.Fprintf(w, "Index size:    ")
	fmt.Fprintf(w, "%.2f MB\n", status.IndexSizeMB)
	label.Fprintf(w, "Last ingested: ")
	fmt.Fprintf(w, "%s\n", formatTime(c.LastIngestedAt))

	if run := status.LastRun; run != nil {
		state := color.New(color.FgGreen)
		if run.Status != storage.RunCompleted {
			state = color.New(color.FgRed)
		}
		label.Fprintf(w, "Last run:      ")
		state.Fprintf(w, "%s", run.Status)
		fmt.Fprintf(w, " (%d documents, %d chunks, %d skipped, %s)\n",
			run.Documents, run.Chunks, run.Skipped, run.Duration().Round(time.Millisecond))
		if run.Error != "" {
			fmt.Fprintf(w, "               %s\n", run.Error)
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
