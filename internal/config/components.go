package config

import (
	"fmt"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/indexer"
)

// Default returns the built-in defaults with environment overrides but
// without reading any configuration file
func Default() (*Config, error) {
	var cfg Config
	if err := New().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Source describes the corpus documents
func (c *Config) Source() corpus.Source {
	return corpus.Source{
		Root:    c.Corpus.Dir,
		Subdirs: c.Corpus.Subdirs,
		Pattern: c.Corpus.Pattern,
	}
}

// ChunkerConfig returns the chunk size bounds
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		MinChars: c.Chunk.MinChars,
		MaxChars: c.Chunk.MaxChars,
	}
}

// EmbedderConfig returns the embedding provider settings
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Model:     c.Embedding.Model,
		CacheSize: c.Embedding.CacheSize,
	}
}

// IngestConfig returns the settings of one ingestion of the configured corpus
func (c *Config) IngestConfig() *indexer.Config {
	return &indexer.Config{
		Source:         c.Source(),
		Collection:     c.Store.Collection,
		Description:    c.Store.Description,
		Workers:        c.Ingest.Workers,
		EmbedBatchSize: c.Ingest.EmbedBatchSize,
		StoreBatchSize: c.Ingest.StoreBatchSize,
	}
}
