package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

// Output formats of the chunk command
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

func newChunkCommand(v *viper.Viper) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Split one Markdown file into chunks without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			doc := types.Document{
				Source: filepath.ToSlash(args[0]),
				Text:   corpus.DecodeText(data),
			}
			chunks := chunker.New(cfg.ChunkerConfig()).ChunkDocument(doc)

			return writeChunks(cmd.OutOrStdout(), chunks, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: json | yaml | text")
	cmd.Flags().Int("min-chars", 0, "Merge sections shorter than this into the previous chunk")
	cmd.Flags().Int("max-chars", 0, "Pack sections longer than this paragraph by paragraph")
	_ = v.BindPFlag("chunk.min_chars", cmd.Flags().Lookup("min-chars"))
	_ = v.BindPFlag("chunk.max_chars", cmd.Flags().Lookup("max-chars"))

	return cmd
}

func writeChunks(w io.Writer, chunks []types.Chunk, format string) error {
	if chunks == nil {
		chunks = []types.Chunk{}
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(chunks)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(chunks); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		header := color.New(color.FgCyan, color.Bold)
		for i := range chunks {
			c := &chunks[i]
			header.Fprintf(w, "--- Chunk %d [%s] %d chars ---\n", i, c.Metadata.Heading, c.CharCount())
			fmt.Fprintln(w, c.Text)
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d chunks\n", len(chunks))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json, yaml or text)", format)
	}
}
