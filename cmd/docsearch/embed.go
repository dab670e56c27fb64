package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

func newEmbedCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text> [other]",
		Short: "Embed text with the configured provider",
		Long: `Embed one text and print the provider, model and vector dimension.
With two texts, also print their cosine similarity. Useful for checking
API keys and comparing providers before a full ingestion.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v)
			if err != nil {
				return err
			}

			emb, err := openEmbedder(cfg, logger)
			if err != nil {
				return err
			}
			defer emb.Close()

			resp, err := emb.GenerateBatch(cmd.Context(), embedder.BatchEmbeddingRequest{Texts: args})
			if err != nil {
				return err
			}

			printEmbeddings(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func printEmbeddings(w io.Writer, resp *embedder.BatchEmbeddingResponse) {
	fmt.Fprintf(w, "Provider:  %s\n", resp.Provider)
	fmt.Fprintf(w, "Model:     %s\n", resp.Model)
	if len(resp.Embeddings) == 0 {
		return
	}
	fmt.Fprintf(w, "Dimension: %d\n", resp.Embeddings[0].Dimension)

	if len(resp.Embeddings) == 2 {
		sim := storage.CosineSimilarity(resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
		fmt.Fprintf(w, "Cosine:    %.4f\n", sim)
	}
}
