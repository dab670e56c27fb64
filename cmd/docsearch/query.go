package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

func newQueryCommand(v *viper.Viper) *cobra.Command {
	var sourcePattern string

	cmd := &cobra.Command{
		Use:   "query <text...> [n]",
		Short: "Search the ingested corpus",
		Long: `Search the collection and print the best matching chunks.

A trailing integer argument sets the number of results:

  docsearch query how do I declare a variable 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v)
			if err != nil {
				return err
			}

			query, n, err := parseQueryArgs(args, cfg.Query.Results)
			if err != nil {
				return err
			}
			mode, err := searcher.ParseMode(cfg.Query.Mode)
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

			emb, err := openEmbedder(cfg, logger)
			if err != nil {
				return err
			}
			defer emb.Close()

			if mode != searcher.SearchModeKeyword && collection.EmbeddingModel != "" &&
				(collection.EmbeddingProvider != emb.Provider() || collection.EmbeddingModel != emb.Model()) {
				logger.Warn("Query embedder differs from the one used for ingestion; re-ingest for accurate results",
					"ingested", collection.EmbeddingProvider+"/"+collection.EmbeddingModel,
					"query", emb.Provider()+"/"+emb.Model())
			}

			req := searcher.SearchRequest{
				Query:        query,
				Limit:        n,
				Mode:         mode,
				CollectionID: collection.ID,
			}
			if sourcePattern != "" {
				req.Filters = &storage.SearchFilters{SourcePattern: sourcePattern}
			}

			resp, err := searcher.NewSearcher(store, emb).Search(ctx, req)
			if err != nil {
				return err
			}
			logger.Debug("Search finished", "mode", resp.SearchMode, "results", resp.TotalResults, "duration", resp.Duration)

			printResults(cmd.OutOrStdout(), resp.Results, cfg.Query.PreviewChars)
			return nil
		},
	}

	cmd.Flags().String("mode", "", "Search mode: vector | keyword | hybrid")
	cmd.Flags().StringVar(&sourcePattern, "source", "", "Only search documents whose path matches this glob")
	_ = v.BindPFlag("query.mode", cmd.Flags().Lookup("mode"))

	return cmd
}

// parseQueryArgs joins the query words. When more than one argument is
// given and the last is all digits, it is the result count.
func parseQueryArgs(args []string, defaultN int) (string, int, error) {
	n := defaultN
	if len(args) > 1 && isDigits(args[len(args)-1]) {
		parsed, err := strconv.Atoi(args[len(args)-1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid result count %q: %w", args[len(args)-1], err)
		}
		if parsed < 1 {
			return "", 0, fmt.Errorf("result count must be at least 1, got %d", parsed)
		}
		n = parsed
		args = args[:len(args)-1]
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return "", 0, errors.New("provide a non-empty query")
	}
	return query, n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func printResults(w io.Writer, results []types.SearchResult, previewChars int) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	for i, r := range results {
		header.Fprintf(w, "--- Result %d [%s] %s ---\n", i+1, r.Source, r.Heading)
		fmt.Fprintln(w, truncate(r.Text, previewChars))
		fmt.Fprintln(w)
	}
}

// truncate keeps the first limit characters of s and marks the cut with "..."
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
