package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsearch-mcp/internal/searcher"
)

// ingestCorpusTool returns the tool definition for ingest_corpus
func ingestCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_corpus",
		Description: "Chunk, embed and store the documentation corpus, replacing the current collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"corpus_dir": map[string]interface{}{
					"type":        "string",
					"description": "Corpus root directory. Defaults to the configured corpus, which is cloned when missing",
				},
			},
		},
	}
}

// searchDocsTool returns the tool definition for search_docs
func searchDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_docs",
		Description: "Search the ingested documentation with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: vector (semantic), keyword (BM25) or hybrid (both, fused by rank)",
					"enum":        []string{"vector", "keyword", "hybrid"},
					"default":     "vector",
				},
				"source_pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob over document paths, e.g. 'libs/std/*'",
				},
				"headings": map[string]interface{}{
					"type":        "array",
					"description": "Only return chunks under these headings",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"min_relevance": map[string]interface{}{
					"type":        "number",
					"description": "Minimum relevance score threshold (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// chunkDocumentTool returns the tool definition for chunk_document
func chunkDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_document",
		Description: "Split a Markdown document into heading-tagged chunks without storing them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Markdown text to chunk",
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Source identifier recorded on every chunk",
				},
				"min_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Sections shorter than this are merged into the previous chunk",
					"minimum":     1,
				},
				"max_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Sections longer than this are packed paragraph by paragraph",
					"minimum":     1,
				},
			},
			Required: []string{"text", "source"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report ingestion status and statistics of the documentation collection",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
